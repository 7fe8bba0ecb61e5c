package config_test

import (
	"testing"
	"time"

	"github.com/sksmith/video-shoppe/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg := config.LoadDefaults()

	if cfg.Profile.Value != cfg.Profile.Default {
		t.Errorf("profile got=%s want=%s", cfg.Profile.Value, cfg.Profile.Default)
	}
	if cfg.Rental.RestockOnReturn.Value {
		t.Errorf("restock on return should default to off")
	}
	if cfg.Rental.MaxRentAgeYears.Value != 1 {
		t.Errorf("max rent age got=%d want=%d", cfg.Rental.MaxRentAgeYears.Value, 1)
	}
	if cfg.Rental.TimeZone.Value != "UTC" {
		t.Errorf("time zone got=%s want=%s", cfg.Rental.TimeZone.Value, "UTC")
	}
}

func TestLoad(t *testing.T) {
	cfg := config.Load("config_test")

	if cfg.Profile.Value != "test" {
		t.Errorf("profile got=%s want=%s", cfg.Profile.Value, "test")
	}
	if cfg.Port.Value != "8089" {
		t.Errorf("port got=%s want=%s", cfg.Port.Value, "8089")
	}
	if !cfg.Db.InMemory.Value {
		t.Errorf("expected in memory db")
	}
	if !cfg.Rental.RestockOnReturn.Value {
		t.Errorf("expected restock on return")
	}
	if cfg.Rental.TimeZone.Value != "America/Chicago" {
		t.Errorf("time zone got=%s want=%s", cfg.Rental.TimeZone.Value, "America/Chicago")
	}
	if len(cfg.Http.AllowedOrigins.Value) != 2 {
		t.Errorf("allowed origins got=%v", cfg.Http.AllowedOrigins.Value)
	}
	if cfg.Db.Host.Value != cfg.Db.Host.Default {
		t.Errorf("db host got=%s want=%s", cfg.Db.Host.Value, cfg.Db.Host.Default)
	}
}

func TestAuthFailureInterval(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{value: "30s", want: 30 * time.Second},
		{value: "", want: time.Minute},
		{value: "garbage", want: time.Minute},
		{value: "-5s", want: time.Minute},
	}

	for _, test := range tests {
		c := config.HttpConfig{AuthFailureWait: config.StringConfig{Value: test.value}}
		if got := c.AuthFailureInterval(); got != test.want {
			t.Errorf("interval for [%s] got=%v want=%v", test.value, got, test.want)
		}
	}
}
