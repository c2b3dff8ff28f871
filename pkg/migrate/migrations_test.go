package migrate

import (
	"os"
	"strings"
	"testing"
)

func TestAddressesMigrationEnforcesSinglePrimary(t *testing.T) {
	b, err := os.ReadFile("migrations/20250301120500_create_addresses.sql")
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	sql := string(b)

	if !strings.Contains(sql, "CREATE UNIQUE INDEX addresses_owner_primary_idx") {
		t.Fatal("expected partial unique index on primary addresses")
	}
	if !strings.Contains(sql, "WHERE is_primary") {
		t.Fatal("expected index to be partial over is_primary")
	}
}

func TestUsersMigrationDefinesRoleDefault(t *testing.T) {
	b, err := os.ReadFile("migrations/20250301120000_create_users.sql")
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	sql := string(b)

	if !strings.Contains(sql, "'customer'") {
		t.Fatal("expected customer to be the default role")
	}
	if !strings.Contains(sql, "email") {
		t.Fatal("expected an email column")
	}
}

func TestMigrationDirValidates(t *testing.T) {
	if err := ValidateDir("migrations"); err != nil {
		t.Fatalf("migrations dir failed validation: %v", err)
	}
}
