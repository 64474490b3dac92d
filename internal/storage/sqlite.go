package storage

import (
	"database/sql"
	"embed"
	"errors"
	"time"

	_ "modernc.org/sqlite"

	"mail-reminder-bot/internal/models"
)

//go:embed schema.sql
var ddl embed.FS

// DB is the sqlite-backed ReminderStore.
type DB struct{ *sql.DB }

var _ ReminderStore = (*DB)(nil)

func New(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}
	if err = migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{db}, nil
}

func migrate(db *sql.DB) error {
	b, err := ddl.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	_, err = db.Exec(string(b))
	return err
}

// ---------- reminders -------------------------------------------------------

func (d *DB) CreateReminder(r models.Reminder) error {
	_, err := d.Exec(`
        INSERT INTO reminders
          (reminder_id, source_type, mail_message_id, subject, sender,
           recipient, description, chat_id, due_at, status, created_at)
        VALUES (?,?,?,?,?,?,?,?,?,?,?)
        ON CONFLICT(reminder_id) DO UPDATE SET
            due_at=excluded.due_at,
            status=excluded.status
    `, r.ID, r.SourceType, r.MailMessageID, r.Subject, r.Sender,
		r.Recipient, r.Description, r.ChatID, r.DueAt.Unix(), r.Status,
		time.Now().Unix())
	return err
}

const reminderCols = `reminder_id, source_type, mail_message_id, subject,
    sender, recipient, description, chat_id, due_at, status`

func (d *DB) ListReminders() ([]models.Reminder, error) {
	rows, err := d.Query(`SELECT ` + reminderCols + ` FROM reminders ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReminders(rows)
}

func (d *DB) ListDue(now time.Time) ([]models.Reminder, error) {
	rows, err := d.Query(`
        SELECT `+reminderCols+` FROM reminders
        WHERE status = ? AND due_at <= ?
        ORDER BY rowid`, models.StatusPending, now.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReminders(rows)
}

func scanReminders(rows *sql.Rows) ([]models.Reminder, error) {
	var res []models.Reminder
	for rows.Next() {
		var r models.Reminder
		var due int64
		if err := rows.Scan(&r.ID, &r.SourceType, &r.MailMessageID, &r.Subject,
			&r.Sender, &r.Recipient, &r.Description, &r.ChatID, &due, &r.Status); err != nil {
			return nil, err
		}
		r.DueAt = time.Unix(due, 0).UTC()
		res = append(res, r)
	}
	return res, rows.Err()
}

func (d *DB) UpdateDueAt(id string, due time.Time) (bool, error) {
	res, err := d.Exec(`
        UPDATE reminders SET due_at = ?, status = ?
        WHERE reminder_id = ?`, due.Unix(), models.StatusPending, id)
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (d *DB) UpdateStatus(id string, status models.Status) (bool, error) {
	res, err := d.Exec(`UPDATE reminders SET status = ? WHERE reminder_id = ?`, status, id)
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (d *DB) DeleteReminder(id string) (bool, error) {
	res, err := d.Exec(`DELETE FROM reminders WHERE reminder_id = ?`, id)
	if err != nil {
		return false, err
	}
	return affected(res)
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ---------- config kv -------------------------------------------------------

func (d *DB) ReadConfigValue(key string) (string, bool, error) {
	var v string
	err := d.QueryRow(`SELECT value FROM config WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (d *DB) WriteConfigValue(key, value string) error {
	_, err := d.Exec(`
        INSERT INTO config(key, value) VALUES (?,?)
        ON CONFLICT(key) DO UPDATE SET value=excluded.value`, key, value)
	return err
}
