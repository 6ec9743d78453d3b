package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeJSON(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFrom_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	c, err := LoadFrom(filepath.Join(t.TempDir(), "missing.json"), "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.AppPort != "8080" || c.TokenTTLHours != 72 || c.DBDriver != "mysql" || c.DBPort != "3306" {
		t.Fatalf("defaults: %+v", c)
	}
	if c.DefaultPomodoroMinutes != 25 || c.MaxPomodoroMinutes != 240 {
		t.Fatalf("pomodoro defaults: %d/%d", c.DefaultPomodoroMinutes, c.MaxPomodoroMinutes)
	}
	if c.LLMProvider != "cohere" || c.LLMTemperature != 0.7 || c.LLMMaxTokens != 1024 {
		t.Fatalf("llm defaults: %s/%v/%d", c.LLMProvider, c.LLMTemperature, c.LLMMaxTokens)
	}
}

func TestLoadFrom_JSONThenEnv(t *testing.T) {
	path := writeJSON(t, `{
		"app": {"AppPort": "9000", "JWTSecret": "from-json", "AllowedOrigins": ["https://a.example"]},
		"database": {"Driver": "sqlite", "DBName": "study"},
		"pomodoro": {"DefaultMinutes": 30}
	}`)
	t.Setenv("APP_PORT", "9100")
	t.Setenv("COHERE_API_KEY", "ck")

	c, err := LoadFrom(path, "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.AppPort != "9100" {
		t.Fatalf("env should win over json: port=%s", c.AppPort)
	}
	if c.JWTSecret != "from-json" || c.DBDriver != "sqlite" || c.DBName != "study" {
		t.Fatalf("json values: %+v", c)
	}
	if len(c.AllowedOrigins) != 1 || c.AllowedOrigins[0] != "https://a.example" {
		t.Fatalf("origins: %v", c.AllowedOrigins)
	}
	if c.DefaultPomodoroMinutes != 30 || c.LLMAPIKey != "ck" {
		t.Fatalf("pomodoro/key: %d/%s", c.DefaultPomodoroMinutes, c.LLMAPIKey)
	}
}

func TestLoadFrom_PostgresPortFromEnvDriver(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("DB_DRIVER", "postgres")
	c, err := LoadFrom("", "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.DBPort != "5432" {
		t.Fatalf("port: want=5432 got=%s", c.DBPort)
	}
}

func TestLoadFrom_Invalid(t *testing.T) {
	if _, err := LoadFrom(writeJSON(t, `{"app": {}}`), ""); err == nil {
		t.Fatalf("missing secret accepted")
	}
	if _, err := LoadFrom(writeJSON(t, `{not json`), ""); err == nil {
		t.Fatalf("invalid json accepted")
	}
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("POMODORO_DEFAULT_MINUTES", "300")
	if _, err := LoadFrom("", ""); err == nil {
		t.Fatalf("default above maximum accepted")
	}
}

func TestOpenDatabase_SQLite(t *testing.T) {
	type widget struct {
		ID   uint
		Name string
	}
	db, err := OpenDatabase(AppConfig{DBDriver: "sqlite", DatabaseURI: filepath.Join(t.TempDir(), "t.db"), LogLevel: "silent"}, &widget{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer CloseDatabase(db)
	if err := db.Create(&widget{Name: "x"}).Error; err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := OpenDatabase(AppConfig{DBDriver: "oracle"}); err == nil {
		t.Fatalf("unknown driver accepted")
	}
}

func TestLoadFrom_DotEnv(t *testing.T) {
	// register cleanup for variables the .env file will set
	for _, k := range []string{"JWT_SECRET", "LLM_MODEL"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	envPath := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envPath, []byte("JWT_SECRET=dotenv\nLLM_MODEL=command-r\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	c, err := LoadFrom("", envPath)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.JWTSecret != "dotenv" || c.LLMModel != "command-r" {
		t.Fatalf("dotenv values: %s/%s", c.JWTSecret, c.LLMModel)
	}
}
