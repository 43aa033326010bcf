package testsupport

import (
	"context"
	"testing"

	"qcflow/internal/config"
	"qcflow/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewJob creates a part and job pair for tests using the provided store.
func NewJob(t testing.TB, st *store.Store, poNumber, partNumber string, quantity int) *store.Job {
	t.Helper()

	ctx := context.Background()
	part, err := st.CreatePart(ctx, partNumber, "", "")
	if err != nil {
		t.Fatalf("store.CreatePart: %v", err)
	}
	jobNumber, err := st.NextJobNumber(ctx)
	if err != nil {
		t.Fatalf("store.NextJobNumber: %v", err)
	}
	job, err := st.CreateJob(ctx, &store.Job{
		PONumber:   poNumber,
		JobNumber:  jobNumber,
		PartID:     part.ID,
		PartNumber: part.Number,
		Quantity:   quantity,
	})
	if err != nil {
		t.Fatalf("store.CreateJob: %v", err)
	}
	return job
}

// NewUser creates an active user with the given role.
func NewUser(t testing.TB, st *store.Store, name string, role store.Role) *store.User {
	t.Helper()

	user, err := st.CreateUser(context.Background(), &store.User{Name: name, Role: role})
	if err != nil {
		t.Fatalf("store.CreateUser: %v", err)
	}
	return user
}
