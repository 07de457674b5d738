package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"

	"hadirku/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type fieldKind int

const (
	kindText fieldKind = iota
	kindJSON
	kindTime
)

// fieldDef maps one camelCase model field onto its snake_case column.
type fieldDef struct {
	name   string
	column string
	kind   fieldKind
}

// pgSchemas fixes the translatable field set per collection. Ids are always
// the text primary key assigned by the database.
var pgSchemas = map[Collection][]fieldDef{
	Students: {
		{"name", "name", kindText},
		{"studentId", "student_id", kindText},
		{"class", "class", kindText},
		{"email", "email", kindText},
		{"password", "password", kindText},
	},
	Teachers: {
		{"name", "name", kindText},
		{"teacherId", "teacher_id", kindText},
		{"email", "email", kindText},
		{"subjects", "subjects", kindJSON},
		{"password", "password", kindText},
	},
	Admins: {
		{"name", "name", kindText},
		{"email", "email", kindText},
		{"password", "password", kindText},
	},
	Users: {
		{"email", "email", kindText},
		{"name", "name", kindText},
		{"role", "role", kindText},
		{"roleId", "role_id", kindText},
		{"password", "password", kindText},
	},
	Subjects: {
		{"name", "name", kindText},
		{"code", "code", kindText},
		{"teacherId", "teacher_id", kindText},
	},
	Schedules: {
		{"subjectId", "subject_id", kindText},
		{"teacherId", "teacher_id", kindText},
		{"class", "class", kindText},
		{"dayOfWeek", "day_of_week", kindText},
		{"startTime", "start_time", kindText},
		{"endTime", "end_time", kindText},
		{"roomNumber", "room_number", kindText},
	},
	Attendances: {
		{"studentId", "student_id", kindText},
		{"scheduleId", "schedule_id", kindText},
		{"subjectId", "subject_id", kindText},
		{"date", "date", kindText},
		{"status", "status", kindText},
		{"capturedAt", "captured_at", kindTime},
	},
}

// Postgres is the networked backend: one table per collection, snake_case
// columns, ids assigned by the database. Every call runs under a default
// timeout when the caller brings none, so a dead network surfaces as an
// error instead of a hang.
type Postgres struct {
	db      *sql.DB
	timeout time.Duration
}

// OpenPostgres connects with sane pool defaults and applies pending
// migrations from the embedded source.
func OpenPostgres(connString string, timeout time.Duration) (*Postgres, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	p := &Postgres{db: db, timeout: timeout}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	if err := migrateUp(connString); err != nil {
		_ = db.Close()
		return nil, err
	}
	return p, nil
}

func migrateUp(connString string) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, "pgx5://"+trimScheme(connString))
	if err != nil {
		return fmt.Errorf("migrate init: %w", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

func trimScheme(connString string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if len(connString) > len(prefix) && connString[:len(prefix)] == prefix {
			return connString[len(prefix):]
		}
	}
	return connString
}

// opCtx applies the default timeout when the caller has no deadline.
func (p *Postgres) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.timeout)
}

func wrap(op string, col Collection, err error) error {
	return &StorageError{Op: op, Collection: col, Err: err}
}

func columnList(defs []fieldDef) string {
	cols := "id"
	for _, d := range defs {
		cols += ", " + d.column
	}
	return cols
}

// scanDoc reads one row into a document keyed by model field names.
func scanDoc(rows interface{ Scan(...any) error }, defs []fieldDef) (Document, error) {
	var id string
	holders := make([]any, 0, len(defs)+1)
	holders = append(holders, &id)
	texts := make([]sql.NullString, len(defs))
	times := make([]sql.NullTime, len(defs))
	blobs := make([][]byte, len(defs))
	for i, d := range defs {
		switch d.kind {
		case kindTime:
			holders = append(holders, &times[i])
		case kindJSON:
			holders = append(holders, &blobs[i])
		default:
			holders = append(holders, &texts[i])
		}
	}
	if err := rows.Scan(holders...); err != nil {
		return nil, err
	}
	doc := Document{"id": id}
	for i, d := range defs {
		switch d.kind {
		case kindTime:
			if times[i].Valid {
				doc[d.name] = times[i].Time.UTC().Format(time.RFC3339)
			}
		case kindJSON:
			if blobs[i] != nil {
				var v any
				if err := json.Unmarshal(blobs[i], &v); err != nil {
					return nil, err
				}
				doc[d.name] = v
			}
		default:
			if texts[i].Valid {
				doc[d.name] = texts[i].String
			}
		}
	}
	return doc, nil
}

// bindValue converts a document field into its SQL argument.
func bindValue(doc Document, d fieldDef) (any, error) {
	v, ok := doc[d.name]
	if !ok || v == nil {
		return nil, nil
	}
	switch d.kind {
	case kindJSON:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return raw, nil
	case kindTime:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("field %s: expected timestamp string", d.name)
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", d.name, err)
		}
		return t, nil
	default:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("field %s: expected string, got %T", d.name, v)
		}
		return s, nil
	}
}

// ListAll returns every record ordered by primary key.
func (p *Postgres) ListAll(ctx context.Context, col Collection) ([]Document, error) {
	defs, ok := pgSchemas[col]
	if !ok {
		return nil, ErrUnknownCollection
	}
	ctx, cancel := p.opCtx(ctx)
	defer cancel()
	rows, err := p.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT %s FROM %s ORDER BY id", columnList(defs), col))
	if err != nil {
		return nil, wrap("list", col, err)
	}
	defer rows.Close()
	return collectDocs(rows, defs, col, "list")
}

func collectDocs(rows *sql.Rows, defs []fieldDef, col Collection, op string) ([]Document, error) {
	var out []Document
	for rows.Next() {
		doc, err := scanDoc(rows, defs)
		if err != nil {
			return nil, wrap(op, col, err)
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, col, err)
	}
	return out, nil
}

// GetByID returns the record with the given id, nil when absent.
func (p *Postgres) GetByID(ctx context.Context, col Collection, id string) (Document, error) {
	defs, ok := pgSchemas[col]
	if !ok {
		return nil, ErrUnknownCollection
	}
	ctx, cancel := p.opCtx(ctx)
	defer cancel()
	row := p.db.QueryRowContext(ctx, fmt.Sprintf(
		"SELECT %s FROM %s WHERE id = $1", columnList(defs), col), id)
	doc, err := scanDoc(row, defs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("get", col, err)
	}
	return doc, nil
}

// Create inserts a record; the id is assigned by the database.
func (p *Postgres) Create(ctx context.Context, col Collection, doc Document) (Document, error) {
	defs, ok := pgSchemas[col]
	if !ok {
		return nil, ErrUnknownCollection
	}
	ctx, cancel := p.opCtx(ctx)
	defer cancel()

	cols, placeholders := "", ""
	args := make([]any, 0, len(defs))
	for _, d := range defs {
		v, err := bindValue(doc, d)
		if err != nil {
			return nil, wrap("create", col, err)
		}
		if len(args) > 0 {
			cols += ", "
			placeholders += ", "
		}
		cols += d.column
		args = append(args, v)
		placeholders += fmt.Sprintf("$%d", len(args))
	}
	row := p.db.QueryRowContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		col, cols, placeholders, columnList(defs)), args...)
	created, err := scanDoc(row, defs)
	if err != nil {
		return nil, wrap("create", col, err)
	}
	return created, nil
}

// Update replaces a record's fields; ErrNotFound when the id is absent.
func (p *Postgres) Update(ctx context.Context, col Collection, id string, doc Document) (Document, error) {
	defs, ok := pgSchemas[col]
	if !ok {
		return nil, ErrUnknownCollection
	}
	ctx, cancel := p.opCtx(ctx)
	defer cancel()

	set := ""
	args := make([]any, 0, len(defs)+1)
	for _, d := range defs {
		v, err := bindValue(doc, d)
		if err != nil {
			return nil, wrap("update", col, err)
		}
		if len(args) > 0 {
			set += ", "
		}
		args = append(args, v)
		set += fmt.Sprintf("%s = $%d", d.column, len(args))
	}
	args = append(args, id)
	row := p.db.QueryRowContext(ctx, fmt.Sprintf(
		"UPDATE %s SET %s WHERE id = $%d RETURNING %s",
		col, set, len(args), columnList(defs)), args...)
	updated, err := scanDoc(row, defs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrap("update", col, err)
	}
	return updated, nil
}

// Delete removes a record; ErrNotFound when the id is absent.
func (p *Postgres) Delete(ctx context.Context, col Collection, id string) error {
	if _, ok := pgSchemas[col]; !ok {
		return ErrUnknownCollection
	}
	ctx, cancel := p.opCtx(ctx)
	defer cancel()
	res, err := p.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", col), id)
	if err != nil {
		return wrap("delete", col, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Query filters server-side on translated columns.
func (p *Postgres) Query(ctx context.Context, col Collection, f Filter) ([]Document, error) {
	defs, ok := pgSchemas[col]
	if !ok {
		return nil, ErrUnknownCollection
	}
	ctx, cancel := p.opCtx(ctx)
	defer cancel()

	query := fmt.Sprintf("SELECT %s FROM %s", columnList(defs), col)
	var (
		clauses []string
		args    []any
	)
	if f.DateFrom != "" {
		args = append(args, f.DateFrom)
		clauses = append(clauses, fmt.Sprintf("date >= $%d", len(args)))
	}
	if f.DateTo != "" {
		args = append(args, f.DateTo)
		clauses = append(clauses, fmt.Sprintf("date <= $%d", len(args)))
	}
	for field, want := range f.Equals {
		column, ok := columnFor(defs, field)
		if !ok {
			return nil, wrap("query", col, fmt.Errorf("unknown filter field %q", field))
		}
		args = append(args, want)
		clauses = append(clauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	for i, clause := range clauses {
		if i == 0 {
			query += " WHERE " + clause
		} else {
			query += " AND " + clause
		}
	}
	query += " ORDER BY id"

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap("query", col, err)
	}
	defer rows.Close()
	return collectDocs(rows, defs, col, "query")
}

func columnFor(defs []fieldDef, field string) (string, bool) {
	for _, d := range defs {
		if d.name == field {
			return d.column, true
		}
	}
	return "", false
}

// Login resolves the user by email server-side, then verifies against the
// role record like the file store does.
func (p *Postgres) Login(ctx context.Context, email, password string) (*model.User, error) {
	docs, err := p.Query(ctx, Users, Filter{Equals: map[string]string{"email": email}})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	user, err := decode[model.User](docs[0])
	if err != nil {
		return nil, err
	}
	col, ok := roleCollection(user.Role)
	if !ok {
		return nil, nil
	}
	record, err := p.GetByID(ctx, col, user.RoleID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}
	stored, _ := record["password"].(string)
	if !verifyPassword(stored, password) {
		return nil, nil
	}
	user.Password = ""
	return &user, nil
}

// Healthy pings the database.
func (p *Postgres) Healthy(ctx context.Context) bool {
	ctx, cancel := p.opCtx(ctx)
	defer cancel()
	return p.db.PingContext(ctx) == nil
}

// Close closes the connection pool.
func (p *Postgres) Close() error { return p.db.Close() }
