// Package store provides the persistence gateway: one record-store contract
// with two interchangeable backends, an embedded JSON file store and a
// Postgres service. Callers stay storage-agnostic; the backend is chosen once
// at startup.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"hadirku/internal/model"
)

// Collection names the logical record sets. The set is fixed; unknown names
// are rejected by both backends.
type Collection string

const (
	Students    Collection = "students"
	Teachers    Collection = "teachers"
	Admins      Collection = "admins"
	Users       Collection = "users"
	Subjects    Collection = "subjects"
	Schedules   Collection = "schedules"
	Attendances Collection = "attendances"
)

// Collections lists every known collection in a stable order.
var Collections = []Collection{Students, Teachers, Admins, Users, Subjects, Schedules, Attendances}

// Known reports whether c is one of the fixed collections.
func (c Collection) Known() bool {
	for _, col := range Collections {
		if c == col {
			return true
		}
	}
	return false
}

// Document is the generic record shape: arbitrary fields plus a string "id".
type Document map[string]any

// ID returns the document id, or "" when unset.
func (d Document) ID() string {
	id, _ := d["id"].(string)
	return id
}

// Filter shapes a Query: an inclusive date range over the "date" field plus
// optional field equality constraints.
type Filter struct {
	DateFrom string
	DateTo   string
	Equals   map[string]string
}

// ErrNotFound is returned by Update, and by the Postgres Delete, when no
// record has the given id.
var ErrNotFound = errors.New("record not found")

// ErrUnknownCollection is returned for collection names outside the fixed set.
var ErrUnknownCollection = errors.New("unknown collection")

// StorageError wraps a backend-level failure with the operation that hit it.
type StorageError struct {
	Op         string
	Collection Collection
	Err        error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Gateway is the uniform record-store contract shared by both backends.
//
// Ordering of ListAll and Query results is stable per backend but
// implementation-defined (insertion order for the file store, primary-key
// order for Postgres); callers needing an order must sort.
type Gateway interface {
	ListAll(ctx context.Context, col Collection) ([]Document, error)
	// GetByID returns (nil, nil) when the id is absent.
	GetByID(ctx context.Context, col Collection, id string) (Document, error)
	// Create assigns a fresh unique id and returns the stored record.
	Create(ctx context.Context, col Collection, doc Document) (Document, error)
	// Update replaces the record's fields, keeping its id. ErrNotFound when
	// the id is absent; never creates.
	Update(ctx context.Context, col Collection, id string, doc Document) (Document, error)
	// Delete removes a record. The file store succeeds silently on absent
	// ids; Postgres returns ErrNotFound. Callers must tolerate either.
	Delete(ctx context.Context, col Collection, id string) error
	Query(ctx context.Context, col Collection, f Filter) ([]Document, error)
	// Login resolves a user by email and verifies the password against the
	// role record. Any mismatch returns (nil, nil); the shape never reveals
	// whether the email exists.
	Login(ctx context.Context, email, password string) (*model.User, error)
	Healthy(ctx context.Context) bool
	Close() error
}

// List fetches a whole collection decoded into model structs.
func List[T any](ctx context.Context, g Gateway, col Collection) ([]T, error) {
	docs, err := g.ListAll(ctx, col)
	if err != nil {
		return nil, err
	}
	return decodeAll[T](docs)
}

// Get fetches one record by id, nil when absent.
func Get[T any](ctx context.Context, g Gateway, col Collection, id string) (*T, error) {
	doc, err := g.GetByID(ctx, col, id)
	if err != nil || doc == nil {
		return nil, err
	}
	v, err := decode[T](doc)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Add creates a record from a model struct and returns it with its new id.
func Add[T any](ctx context.Context, g Gateway, col Collection, v T) (T, error) {
	var zero T
	doc, err := toDocument(v)
	if err != nil {
		return zero, err
	}
	created, err := g.Create(ctx, col, doc)
	if err != nil {
		return zero, err
	}
	return decode[T](created)
}

// Put updates a record from a model struct.
func Put[T any](ctx context.Context, g Gateway, col Collection, id string, v T) (T, error) {
	var zero T
	doc, err := toDocument(v)
	if err != nil {
		return zero, err
	}
	updated, err := g.Update(ctx, col, id, doc)
	if err != nil {
		return zero, err
	}
	return decode[T](updated)
}

// Find runs a filtered query decoded into model structs.
func Find[T any](ctx context.Context, g Gateway, col Collection, f Filter) ([]T, error) {
	docs, err := g.Query(ctx, col, f)
	if err != nil {
		return nil, err
	}
	return decodeAll[T](docs)
}

func decode[T any](doc Document) (T, error) {
	var v T
	raw, err := json.Marshal(doc)
	if err != nil {
		return v, err
	}
	return v, json.Unmarshal(raw, &v)
}

func decodeAll[T any](docs []Document) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		v, err := decode[T](doc)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func toDocument(v any) (Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	delete(doc, "id")
	return doc, nil
}

// matches applies a Filter to a document in memory; the file store has no
// native filtering, Postgres pushes the same predicate into SQL.
func matches(doc Document, f Filter) bool {
	if f.DateFrom != "" || f.DateTo != "" {
		date, _ := doc["date"].(string)
		if f.DateFrom != "" && date < f.DateFrom {
			return false
		}
		if f.DateTo != "" && date > f.DateTo {
			return false
		}
	}
	for field, want := range f.Equals {
		got, _ := doc[field].(string)
		if got != want {
			return false
		}
	}
	return true
}

// roleCollection maps a user role to the collection holding its credential
// record.
func roleCollection(role model.Role) (Collection, bool) {
	switch role {
	case model.RoleStudent:
		return Students, true
	case model.RoleTeacher:
		return Teachers, true
	case model.RoleAdmin:
		return Admins, true
	}
	return "", false
}

// verifyPassword compares a stored credential with the supplied password.
// Stored values carrying a bcrypt prefix are verified as hashes; everything
// else is compared as plaintext for compatibility with legacy seed data.
func verifyPassword(stored, given string) bool {
	if stored == "" {
		return false
	}
	if strings.HasPrefix(stored, "$2a$") || strings.HasPrefix(stored, "$2b$") || strings.HasPrefix(stored, "$2y$") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(given)) == nil
	}
	return stored == given
}

// loginUser implements the shared login contract on top of a gateway: look
// up by email only, then verify against the role record, reporting absent on
// every mismatch.
func loginUser(ctx context.Context, g Gateway, email, password string) (*model.User, error) {
	users, err := List[model.User](ctx, g, Users)
	if err != nil {
		return nil, err
	}
	var user *model.User
	for i := range users {
		if users[i].Email == email {
			user = &users[i]
			break
		}
	}
	if user == nil {
		return nil, nil
	}
	col, ok := roleCollection(user.Role)
	if !ok {
		return nil, nil
	}
	record, err := g.GetByID(ctx, col, user.RoleID)
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
	out := *user
	out.Password = ""
	return &out, nil
}
