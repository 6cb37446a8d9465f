package util

import (
	"os"
	"testing"

	"github.com/spf13/cobra"
)

func TestGetEnvWithDefault(t *testing.T) {
	// Test with existing env var
	os.Setenv("TEST_STRING", "test-value")
	if GetEnvWithDefault("TEST_STRING", "default") != "test-value" {
		t.Errorf("Expected GetEnvWithDefault to return 'test-value', got '%s'", GetEnvWithDefault("TEST_STRING", "default"))
	}

	// Test with missing env var
	os.Unsetenv("MISSING_VAR")
	if GetEnvWithDefault("MISSING_VAR", "default") != "default" {
		t.Errorf("Expected GetEnvWithDefault to return 'default', got '%s'", GetEnvWithDefault("MISSING_VAR", "default"))
	}

	// Test with empty env var (should return default)
	os.Setenv("EMPTY_VAR", "")
	if GetEnvWithDefault("EMPTY_VAR", "default") != "default" {
		t.Errorf("Expected GetEnvWithDefault to return 'default' for empty var, got '%s'", GetEnvWithDefault("EMPTY_VAR", "default"))
	}

	// Cleanup
	os.Unsetenv("TEST_STRING")
	os.Unsetenv("EMPTY_VAR")
}

func TestGetEnvIntWithDefault(t *testing.T) {
	// Test with valid int env var
	os.Setenv("TEST_INT", "12345")
	if GetEnvIntWithDefault("TEST_INT", 0) != 12345 {
		t.Errorf("Expected GetEnvIntWithDefault to return 12345, got %d", GetEnvIntWithDefault("TEST_INT", 0))
	}

	// Test with invalid int value (should return default)
	os.Setenv("TEST_INVALID_INT", "not-a-number")
	if GetEnvIntWithDefault("TEST_INVALID_INT", 999) != 999 {
		t.Errorf("Expected GetEnvIntWithDefault to return default 999, got %d", GetEnvIntWithDefault("TEST_INVALID_INT", 999))
	}

	// Test with missing env var
	os.Unsetenv("MISSING_INT_VAR")
	if GetEnvIntWithDefault("MISSING_INT_VAR", 777) != 777 {
		t.Errorf("Expected GetEnvIntWithDefault to return default 777, got %d", GetEnvIntWithDefault("MISSING_INT_VAR", 777))
	}

	// Test with empty env var (should return default)
	os.Setenv("EMPTY_INT_VAR", "")
	if GetEnvIntWithDefault("EMPTY_INT_VAR", 888) != 888 {
		t.Errorf("Expected GetEnvIntWithDefault to return default 888 for empty var, got %d", GetEnvIntWithDefault("EMPTY_INT_VAR", 888))
	}

	// Cleanup
	os.Unsetenv("TEST_INT")
	os.Unsetenv("TEST_INVALID_INT")
	os.Unsetenv("EMPTY_INT_VAR")
}

func TestPreRunEWithEnvVars(t *testing.T) {
	os.Setenv("PGDATABASE", "test-db")
	os.Setenv("PGUSER", "test-user")
	os.Setenv("PGHOST", "test-host")
	os.Setenv("PGPORT", "1234")
	defer func() {
		os.Unsetenv("PGDATABASE")
		os.Unsetenv("PGUSER")
		os.Unsetenv("PGHOST")
		os.Unsetenv("PGPORT")
	}()

	var db, user, host, password string
	var port int

	preRunFunc := PreRunEWithEnvVars(&db, &user, &host, &password, &port)
	if preRunFunc == nil {
		t.Fatal("PreRunEWithEnvVars should return a non-nil function")
	}

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringVar(&host, "host", "localhost", "")
	cmd.Flags().IntVar(&port, "port", 5432, "")
	cmd.Flags().StringVar(&db, "db", "", "")
	cmd.Flags().StringVar(&user, "user", "", "")
	cmd.Flags().StringVar(&password, "password", "", "")

	if err := preRunFunc(cmd, nil); err != nil {
		t.Fatalf("PreRunE returned error: %v", err)
	}

	if db != "test-db" {
		t.Errorf("Expected db to be 'test-db', got '%s'", db)
	}
	if user != "test-user" {
		t.Errorf("Expected user to be 'test-user', got '%s'", user)
	}
	if host != "test-host" {
		t.Errorf("Expected host to be 'test-host', got '%s'", host)
	}
	if port != 1234 {
		t.Errorf("Expected port to be 1234, got %d", port)
	}
}

func TestPreRunEWithEnvVarsMissingDatabase(t *testing.T) {
	os.Unsetenv("PGDATABASE")
	os.Unsetenv("PGUSER")

	var db, user, host, password string
	var port int
	preRunFunc := PreRunEWithEnvVars(&db, &user, &host, &password, &port)

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringVar(&host, "host", "localhost", "")
	cmd.Flags().IntVar(&port, "port", 5432, "")
	cmd.Flags().StringVar(&db, "db", "", "")
	cmd.Flags().StringVar(&user, "user", "", "")
	cmd.Flags().StringVar(&password, "password", "", "")

	if err := preRunFunc(cmd, nil); err == nil {
		t.Fatal("Expected an error when neither --db nor PGDATABASE is set")
	}
}
