package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zenstore/zenstore-backend/pkg/migrate"
)

func TestWalletMigrationsEnforceLedgerInvariants(t *testing.T) {
	accountMatches, err := filepath.Glob(filepath.Join("migrations", "*_create_wallet_accounts.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(accountMatches) == 0 {
		t.Fatalf("no wallet account migration file found")
	}

	accountData, err := os.ReadFile(accountMatches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	if !strings.Contains(string(accountData), "CHECK (balance_paise >= 0)") {
		t.Errorf("wallet account balance must be non-negative at the schema level")
	}

	txnMatches, err := filepath.Glob(filepath.Join("migrations", "*_create_wallet_transactions.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(txnMatches) == 0 {
		t.Fatalf("no wallet transaction migration file found")
	}

	txnData, err := os.ReadFile(txnMatches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(txnData)

	checks := []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_wallet_transactions_idempotency_key",
		"WHERE idempotency_key IS NOT NULL",
		"FOREIGN KEY (operator_id) REFERENCES wallet_accounts(operator_id) ON DELETE CASCADE",
		"CHECK (amount_paise > 0)",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationDirValidates(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("migration dir failed validation: %v", err)
	}
}
