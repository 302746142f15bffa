package store

import "time"

type User struct {
	UserID    string    `db:"userId" json:"userId"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	CreatedAt time.Time `db:"timestamp" json:"createdAt"`
}

// ChatRecord is one persisted exchange: the user's message and the generated reply.
type ChatRecord struct {
	ID        int64     `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"userId"`
	Message   string    `db:"message" json:"message"`
	Reply     string    `db:"reply" json:"reply"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
