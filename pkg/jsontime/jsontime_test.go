package jsontime

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-yaml"
)

func TestDuration_JSON(t *testing.T) {
	data, err := json.Marshal(Duration(1500 * time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `"1.5s"` {
		t.Errorf("MarshalJSON = %s; want \"1.5s\"", data)
	}

	tests := []struct {
		in   string
		want time.Duration
	}{
		{`"5m"`, 5 * time.Minute},
		{`150000000`, 150 * time.Millisecond},
	}
	for _, tc := range tests {
		var d Duration
		if err := json.Unmarshal([]byte(tc.in), &d); err != nil {
			t.Fatalf("Unmarshal(%s) error: %v", tc.in, err)
		}
		if d.Std() != tc.want {
			t.Errorf("Unmarshal(%s) = %v; want %v", tc.in, d, tc.want)
		}
	}

	var d Duration
	if err := json.Unmarshal([]byte(`"soon"`), &d); err == nil {
		t.Error("Unmarshal(\"soon\") should fail")
	}
}

func TestDuration_YAML(t *testing.T) {
	type config struct {
		IdleTimeout Duration `yaml:"idle_timeout"`
		Elapsed     Duration `yaml:"elapsed"`
	}
	var c config
	if err := yaml.Unmarshal([]byte("idle_timeout: 30s\nelapsed: 2000000\n"), &c); err != nil {
		t.Fatal(err)
	}
	if c.IdleTimeout.Std() != 30*time.Second || c.Elapsed.Std() != 2*time.Millisecond {
		t.Errorf("config = %+v", c)
	}

	out, err := yaml.Marshal(config{IdleTimeout: Duration(time.Minute)})
	if err != nil {
		t.Fatal(err)
	}
	if got := string(out); !strings.Contains(got, "idle_timeout: 1m0s") {
		t.Errorf("Marshal = %q", got)
	}
}
