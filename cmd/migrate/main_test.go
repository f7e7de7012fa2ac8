package main

import (
	"flag"
	"os"
	"testing"
)

// resetFlags resets the global flag.CommandLine to avoid "flag redefined" panic
func resetFlags() {
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ExitOnError)
}

// resetEnv clears env vars used by parseConfig
func resetEnv() {
	os.Clearenv()
}

func TestParseFlags_Default(t *testing.T) {
	resetFlags()
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	os.Args = []string{"cmd"}
	configPath := parseFlags()
	expected := "config.env"

	if configPath != expected {
		t.Errorf("expected %s, got %s", expected, configPath)
	}
}

func TestParseFlags_Custom(t *testing.T) {
	resetFlags()
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	os.Args = []string{"cmd", "-c", "myconfig.env"}
	configPath := parseFlags()
	expected := "myconfig.env"

	if configPath != expected {
		t.Errorf("expected %s, got %s", expected, configPath)
	}
}

func TestParseConfig_Defaults(t *testing.T) {
	resetEnv()

	pgHost, pgPort, pgUser, pgPassword, pgDB, logLevel, err := parseConfig("does-not-exist.env")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if pgHost != "localhost" || pgPort != 5432 || pgUser != "user" || pgPassword != "password" || pgDB != "database" {
		t.Errorf("unexpected postgres defaults: %s %d %s %s %s", pgHost, pgPort, pgUser, pgPassword, pgDB)
	}
	if logLevel != "info" {
		t.Errorf("expected log level info, got %s", logLevel)
	}
}

func TestParseConfig_FromEnv(t *testing.T) {
	resetEnv()
	os.Setenv("POSTGRES_HOST", "db.internal")
	os.Setenv("POSTGRES_PORT", "6543")
	os.Setenv("APP_LOG_LEVEL", "debug")
	defer resetEnv()

	pgHost, pgPort, _, _, _, logLevel, err := parseConfig("does-not-exist.env")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if pgHost != "db.internal" || pgPort != 6543 {
		t.Errorf("unexpected postgres config: %s %d", pgHost, pgPort)
	}
	if logLevel != "debug" {
		t.Errorf("expected log level debug, got %s", logLevel)
	}
}

func TestParseConfig_BadPort(t *testing.T) {
	resetEnv()
	os.Setenv("POSTGRES_PORT", "not-a-number")
	defer resetEnv()

	_, _, _, _, _, _, err := parseConfig("does-not-exist.env")
	if err == nil {
		t.Fatal("expected error for invalid port")
	}
}
