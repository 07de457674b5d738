package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"hadirku/internal/model"
)

func openTestStore(t *testing.T) *FileStore {
	t.Helper()
	fs, err := OpenFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("OpenFileStore: %v", err)
	}
	return fs
}

func TestCreateThenGetByID(t *testing.T) {
	fs := openTestStore(t)
	ctx := context.Background()

	created, err := fs.Create(ctx, Subjects, Document{"name": "Biologi", "code": "BIO12", "teacherId": "2"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID() == "" {
		t.Fatal("Create did not assign an id")
	}
	got, err := fs.GetByID(ctx, Subjects, created.ID())
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil {
		t.Fatal("GetByID returned absent for a created record")
	}
	for k, v := range created {
		if got[k] != v {
			t.Errorf("field %q = %v, want %v", k, got[k], v)
		}
	}
}

func TestGetByIDAbsent(t *testing.T) {
	fs := openTestStore(t)
	got, err := fs.GetByID(context.Background(), Students, "no-such-id")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got != nil {
		t.Fatalf("GetByID absent = %v, want nil", got)
	}
}

func TestUpdateAbsentDoesNotCreate(t *testing.T) {
	fs := openTestStore(t)
	ctx := context.Background()

	before, _ := fs.ListAll(ctx, Subjects)
	_, err := fs.Update(ctx, Subjects, "no-such-id", Document{"name": "x"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Update absent err = %v, want ErrNotFound", err)
	}
	after, _ := fs.ListAll(ctx, Subjects)
	if len(after) != len(before) {
		t.Fatalf("Update absent changed record count: %d -> %d", len(before), len(after))
	}
}

func TestUpdateKeepsID(t *testing.T) {
	fs := openTestStore(t)
	ctx := context.Background()

	created, _ := fs.Create(ctx, Subjects, Document{"name": "Sejarah", "code": "SEJ12"})
	updated, err := fs.Update(ctx, Subjects, created.ID(), Document{"name": "Sejarah Indonesia", "code": "SEJ12"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.ID() != created.ID() {
		t.Errorf("Update changed id: %q -> %q", created.ID(), updated.ID())
	}
	if updated["name"] != "Sejarah Indonesia" {
		t.Errorf("name = %v, want updated value", updated["name"])
	}
}

func TestDeleteSilentOnAbsent(t *testing.T) {
	fs := openTestStore(t)
	if err := fs.Delete(context.Background(), Students, "no-such-id"); err != nil {
		t.Fatalf("Delete absent: %v, want silent success", err)
	}
}

func TestDeleteRemoves(t *testing.T) {
	fs := openTestStore(t)
	ctx := context.Background()

	created, _ := fs.Create(ctx, Subjects, Document{"name": "Geografi", "code": "GEO12"})
	if err := fs.Delete(ctx, Subjects, created.ID()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, _ := fs.GetByID(ctx, Subjects, created.ID())
	if got != nil {
		t.Fatal("record still present after Delete")
	}
}

func TestListAllInsertionOrder(t *testing.T) {
	fs := openTestStore(t)
	ctx := context.Background()

	a, _ := fs.Create(ctx, Attendances, Document{"studentId": "1", "date": "2025-05-01"})
	b, _ := fs.Create(ctx, Attendances, Document{"studentId": "2", "date": "2025-05-02"})
	docs, err := fs.ListAll(ctx, Attendances)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(docs) != 2 || docs[0].ID() != a.ID() || docs[1].ID() != b.ID() {
		t.Fatalf("ListAll order = %v, want insertion order [%s %s]", docs, a.ID(), b.ID())
	}
}

func TestTimestampIDCollisionSuffix(t *testing.T) {
	fs := openTestStore(t)
	fs.now = func() time.Time { return time.UnixMilli(1746259200000) }
	ctx := context.Background()

	first, _ := fs.Create(ctx, Attendances, Document{"studentId": "1"})
	second, _ := fs.Create(ctx, Attendances, Document{"studentId": "2"})
	if first.ID() == second.ID() {
		t.Fatalf("same-millisecond creates share id %q", first.ID())
	}
	if first.ID() != "1746259200000" || second.ID() != "1746259200000-1" {
		t.Errorf("ids = %q, %q", first.ID(), second.ID())
	}
}

func TestQueryDateRangeAndEquals(t *testing.T) {
	fs := openTestStore(t)
	ctx := context.Background()

	for _, doc := range []Document{
		{"studentId": "1", "subjectId": "M1", "date": "2025-04-30"},
		{"studentId": "1", "subjectId": "M1", "date": "2025-05-10"},
		{"studentId": "2", "subjectId": "M2", "date": "2025-05-15"},
		{"studentId": "1", "subjectId": "M1", "date": "2025-06-01"},
	} {
		if _, err := fs.Create(ctx, Attendances, doc); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	docs, err := fs.Query(ctx, Attendances, Filter{
		DateFrom: "2025-05-01",
		DateTo:   "2025-05-31",
		Equals:   map[string]string{"subjectId": "M1"},
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(docs) != 1 || docs[0]["date"] != "2025-05-10" {
		t.Fatalf("Query = %v, want the single in-range M1 record", docs)
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	fs, err := OpenFileStore(dir)
	if err != nil {
		t.Fatalf("OpenFileStore: %v", err)
	}
	created, err := fs.Create(context.Background(), Subjects, Document{"name": "Bahasa Inggris", "code": "ING12"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	reopened, err := OpenFileStore(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := reopened.GetByID(context.Background(), Subjects, created.ID())
	if err != nil || got == nil {
		t.Fatalf("record lost across reopen: doc=%v err=%v", got, err)
	}
}

func TestSeededReferenceData(t *testing.T) {
	fs := openTestStore(t)
	students, err := List[model.Student](context.Background(), fs, Students)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(students) == 0 {
		t.Fatal("fresh store has no seeded students")
	}
}

func TestLoginContract(t *testing.T) {
	fs := openTestStore(t)
	ctx := context.Background()

	t.Run("valid credentials", func(t *testing.T) {
		user, err := fs.Login(ctx, "admin@example.com", "admin123")
		if err != nil {
			t.Fatalf("Login: %v", err)
		}
		if user == nil || user.Role != model.RoleAdmin {
			t.Fatalf("Login = %+v, want admin user", user)
		}
		if user.Password != "" {
			t.Error("Login leaked the stored password")
		}
	})

	t.Run("wrong password and unknown email share a shape", func(t *testing.T) {
		wrongPass, err := fs.Login(ctx, "admin@example.com", "nope")
		if err != nil {
			t.Fatalf("Login: %v", err)
		}
		unknown, err := fs.Login(ctx, "nobody@example.com", "nope")
		if err != nil {
			t.Fatalf("Login: %v", err)
		}
		if wrongPass != nil || unknown != nil {
			t.Fatalf("mismatches must both be absent: %v, %v", wrongPass, unknown)
		}
	})

	t.Run("bcrypt hashed credential", func(t *testing.T) {
		hash, err := bcrypt.GenerateFromPassword([]byte("rahasia"), bcrypt.MinCost)
		if err != nil {
			t.Fatalf("bcrypt: %v", err)
		}
		admin, _ := fs.GetByID(ctx, Admins, "1")
		admin["password"] = string(hash)
		if _, err := fs.Update(ctx, Admins, "1", admin); err != nil {
			t.Fatalf("Update: %v", err)
		}
		user, err := fs.Login(ctx, "admin@example.com", "rahasia")
		if err != nil || user == nil {
			t.Fatalf("hashed login failed: user=%v err=%v", user, err)
		}
		if bad, _ := fs.Login(ctx, "admin@example.com", "admin123"); bad != nil {
			t.Error("old plaintext password still accepted after hashing")
		}
	})
}

func TestUnknownCollectionRejected(t *testing.T) {
	fs := openTestStore(t)
	if _, err := fs.ListAll(context.Background(), Collection("grades")); !errors.Is(err, ErrUnknownCollection) {
		t.Fatalf("err = %v, want ErrUnknownCollection", err)
	}
}
