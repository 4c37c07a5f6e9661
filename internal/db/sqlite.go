package db

import (
	"database/sql"
	"fmt"

	"taskchat/internal/models"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS tasks (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL,
    title TEXT NOT NULL,
    description TEXT,
    completed BOOLEAN NOT NULL DEFAULT 0,
    priority TEXT NOT NULL DEFAULT 'medium',
    tags TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_tasks_user ON tasks(user_id);

CREATE TABLE IF NOT EXISTS conversations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL,
    title TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_conversations_user ON conversations(user_id);

CREATE TABLE IF NOT EXISTS messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    conversation_id INTEGER NOT NULL,
    role TEXT NOT NULL,
    content TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (conversation_id) REFERENCES conversations(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id);`

type Database struct {
	db *sql.DB
}

func New(dbPath string) (*Database, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Database{db: db}, nil
}

func (db *Database) Close() error {
	return db.db.Close()
}

// ---- users ----

func (db *Database) CreateUser(email, passwordHash string) (*models.User, error) {
	query := `
        INSERT INTO users (email, password_hash, created_at, updated_at)
        VALUES (?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
        RETURNING id, created_at, updated_at`

	user := &models.User{Email: email, PasswordHash: passwordHash}
	err := db.db.QueryRow(query, email, passwordHash).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	return user, err
}

// GetUserByEmail returns (nil, nil) when no user with that email exists.
func (db *Database) GetUserByEmail(email string) (*models.User, error) {
	query := `
        SELECT id, email, password_hash, created_at, updated_at
        FROM users WHERE email = ?`

	var user models.User
	err := db.db.QueryRow(query, email).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByID returns (nil, nil) when the user does not exist.
func (db *Database) GetUserByID(id int64) (*models.User, error) {
	query := `
        SELECT id, email, password_hash, created_at, updated_at
        FROM users WHERE id = ?`

	var user models.User
	err := db.db.QueryRow(query, id).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ---- tasks ----

func (db *Database) CreateTask(task *models.Task) error {
	tx, err := db.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
        INSERT INTO tasks (user_id, title, description, completed, priority, tags, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
        RETURNING id, created_at, updated_at`

	err = tx.QueryRow(query,
		task.UserID, task.Title, nullable(task.Description), task.Completed, task.Priority, nullable(task.Tags),
	).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// GetTask is scoped by the owning user; a task that exists but belongs to
// someone else is indistinguishable from an absent one. Returns (nil, nil)
// in both cases.
func (db *Database) GetTask(userID, taskID int64) (*models.Task, error) {
	query := `
        SELECT id, user_id, title, description, completed, priority, tags, created_at, updated_at
        FROM tasks
        WHERE id = ? AND user_id = ?`

	var task models.Task
	var description, tags sql.NullString
	err := db.db.QueryRow(query, taskID, userID).Scan(
		&task.ID, &task.UserID, &task.Title, &description, &task.Completed,
		&task.Priority, &tags, &task.CreatedAt, &task.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	task.Description = description.String
	task.Tags = tags.String
	return &task, nil
}

// ListTasks returns the user's tasks ascending by creation time, optionally
// filtered by completion status ("pending" or "completed"; anything else
// means all).
func (db *Database) ListTasks(userID int64, status string) ([]models.Task, error) {
	query := `
        SELECT id, user_id, title, description, completed, priority, tags, created_at, updated_at
        FROM tasks
        WHERE user_id = ?`
	switch status {
	case "pending":
		query += " AND completed = 0"
	case "completed":
		query += " AND completed = 1"
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := db.db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]models.Task, 0)
	for rows.Next() {
		var task models.Task
		var description, tags sql.NullString
		err := rows.Scan(&task.ID, &task.UserID, &task.Title, &description, &task.Completed,
			&task.Priority, &tags, &task.CreatedAt, &task.UpdatedAt)
		if err != nil {
			return nil, err
		}
		task.Description = description.String
		task.Tags = tags.String
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// UpdateTask writes all mutable fields of the task, scoped by owner.
func (db *Database) UpdateTask(task *models.Task) error {
	tx, err := db.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
        UPDATE tasks
        SET title = ?, description = ?, completed = ?, priority = ?, tags = ?, updated_at = CURRENT_TIMESTAMP
        WHERE id = ? AND user_id = ?
        RETURNING updated_at`

	err = tx.QueryRow(query,
		task.Title, nullable(task.Description), task.Completed, task.Priority, nullable(task.Tags),
		task.ID, task.UserID,
	).Scan(&task.UpdatedAt)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteTask reports whether a row was removed.
func (db *Database) DeleteTask(userID, taskID int64) (bool, error) {
	tx, err := db.db.Begin()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.Exec("DELETE FROM tasks WHERE id = ? AND user_id = ?", taskID, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return n > 0, tx.Commit()
}

// ---- conversations ----

func (db *Database) CreateConversation(userID int64, title string) (*models.Conversation, error) {
	query := `
        INSERT INTO conversations (user_id, title, created_at, updated_at)
        VALUES (?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
        RETURNING id, created_at, updated_at`

	conv := &models.Conversation{UserID: userID, Title: title}
	err := db.db.QueryRow(query, userID, title).Scan(&conv.ID, &conv.CreatedAt, &conv.UpdatedAt)
	return conv, err
}

// GetConversation returns (nil, nil) when the conversation is absent or
// owned by a different user.
func (db *Database) GetConversation(userID, convID int64) (*models.Conversation, error) {
	query := `
        SELECT id, user_id, title, created_at, updated_at
        FROM conversations
        WHERE id = ? AND user_id = ?`

	var conv models.Conversation
	err := db.db.QueryRow(query, convID, userID).Scan(
		&conv.ID, &conv.UserID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (db *Database) ListConversations(userID int64) ([]models.Conversation, error) {
	query := `
        SELECT id, user_id, title, created_at, updated_at
        FROM conversations
        WHERE user_id = ?
        ORDER BY updated_at DESC`

	rows, err := db.db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	conversations := make([]models.Conversation, 0)
	for rows.Next() {
		var conv models.Conversation
		err := rows.Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, conv)
	}
	return conversations, rows.Err()
}

// DeleteConversation removes the conversation and its messages. Reports
// whether the conversation existed and was owned by the user.
func (db *Database) DeleteConversation(userID, convID int64) (bool, error) {
	tx, err := db.db.Begin()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	// Delete messages first; the foreign-key pragma cascades too, but older
	// database files may have been created without it.
	if _, err := tx.Exec(
		"DELETE FROM messages WHERE conversation_id IN (SELECT id FROM conversations WHERE id = ? AND user_id = ?)",
		convID, userID); err != nil {
		return false, err
	}

	res, err := tx.Exec("DELETE FROM conversations WHERE id = ? AND user_id = ?", convID, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	return true, tx.Commit()
}

// ---- messages ----

// SaveMessage appends a message and touches the conversation's updated_at.
func (db *Database) SaveMessage(msg *models.Message) error {
	tx, err := db.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
        INSERT INTO messages (conversation_id, role, content, created_at)
        VALUES (?, ?, ?, CURRENT_TIMESTAMP)
        RETURNING id, created_at`

	if err := tx.QueryRow(query, msg.ConvID, msg.Role, msg.Content).Scan(&msg.ID, &msg.CreatedAt); err != nil {
		return err
	}

	if _, err := tx.Exec(
		"UPDATE conversations SET updated_at = CURRENT_TIMESTAMP WHERE id = ?", msg.ConvID); err != nil {
		return err
	}

	return tx.Commit()
}

// GetConversationMessages returns the full ordered history, oldest first.
func (db *Database) GetConversationMessages(convID int64) ([]models.Message, error) {
	query := `
        SELECT id, conversation_id, role, content, created_at
        FROM messages
        WHERE conversation_id = ?
        ORDER BY created_at ASC, id ASC`

	rows, err := db.db.Query(query, convID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		var msg models.Message
		err := rows.Scan(&msg.ID, &msg.ConvID, &msg.Role, &msg.Content, &msg.CreatedAt)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
