package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"
)

// Schema is the full relational layout. The unique constraints on
// people.personnel_number, users.telegram_id and users.person_id are
// load-bearing: they are the storage-level backstop for racing
// registrations and roster inserts.
const Schema = `
CREATE TABLE IF NOT EXISTS people (
    id               UUID PRIMARY KEY,
    personnel_number TEXT NOT NULL UNIQUE,
    first_name       TEXT NOT NULL,
    patronymic       TEXT NOT NULL DEFAULT '',
    birth_date       DATE NOT NULL,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS users (
    id             UUID PRIMARY KEY,
    telegram_id    BIGINT NOT NULL UNIQUE,
    username       TEXT NOT NULL DEFAULT '',
    person_id      UUID UNIQUE REFERENCES people(id),
    department     TEXT NOT NULL DEFAULT '',
    active         BOOLEAN NOT NULL DEFAULT TRUE,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
    last_active_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS user_roles (
    user_id UUID NOT NULL REFERENCES users(id),
    role    TEXT NOT NULL,
    PRIMARY KEY (user_id, role)
);

CREATE TABLE IF NOT EXISTS funds (
    id           UUID PRIMARY KEY,
    kind         TEXT NOT NULL,
    title        TEXT NOT NULL,
    description  TEXT NOT NULL DEFAULT '',
    person_id    UUID REFERENCES people(id),
    event_name   TEXT NOT NULL DEFAULT '',
    treasurer_id UUID NOT NULL REFERENCES users(id),
    deadline     TIMESTAMPTZ NOT NULL,
    target       BIGINT NOT NULL DEFAULT 0,
    accumulated  BIGINT NOT NULL DEFAULT 0,
    closed       BOOLEAN NOT NULL DEFAULT FALSE,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS donations (
    id         UUID PRIMARY KEY,
    fund_id    UUID NOT NULL REFERENCES funds(id),
    donor_id   UUID NOT NULL REFERENCES users(id),
    amount     BIGINT NOT NULL CHECK (amount > 0),
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS donations_fund_idx ON donations(fund_id);
CREATE INDEX IF NOT EXISTS donations_donor_idx ON donations(donor_id);

CREATE TABLE IF NOT EXISTS notifications (
    id            UUID PRIMARY KEY,
    user_id       UUID NOT NULL REFERENCES users(id),
    title         TEXT NOT NULL,
    body          TEXT NOT NULL DEFAULT '',
    category      TEXT NOT NULL,
    sent          BOOLEAN NOT NULL DEFAULT FALSE,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
    scheduled_for TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS notifications_due_idx ON notifications(scheduled_for) WHERE NOT sent;

CREATE TABLE IF NOT EXISTS broadcasts (
    id                UUID PRIMARY KEY,
    sender_id         UUID NOT NULL REFERENCES users(id),
    title             TEXT NOT NULL,
    body              TEXT NOT NULL DEFAULT '',
    audience          TEXT NOT NULL,
    target_department TEXT NOT NULL DEFAULT '',
    fund_id           UUID,
    scheduled_for     TIMESTAMPTZ NOT NULL,
    created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS audit_log (
    id         UUID PRIMARY KEY,
    user_id    UUID,
    action     TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// EnsureSchema applies the schema. All statements are idempotent.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, Schema)
	return err
}
