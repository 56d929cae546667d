package session

import (
	"testing"

	"github.com/intransparency/msgcenter/internal/config"
)

func TestResolvePrecedence(t *testing.T) {
	cfg := config.Default()
	cfg.User.ID = "cfg-user"
	cfg.User.Name = "Config Name"
	cfg.User.Role = "recruiter"

	// Flags override config.
	id := Resolve("flag-user", "", "", cfg)
	if id.UserID != "flag-user" {
		t.Errorf("UserID = %q, want flag-user", id.UserID)
	}
	if id.Name != "Config Name" || id.Role != "recruiter" {
		t.Errorf("identity = %+v, want config values for unset flags", id)
	}

	// Config only.
	id = Resolve("", "", "", cfg)
	if id.UserID != "cfg-user" {
		t.Errorf("UserID = %q, want cfg-user", id.UserID)
	}

	// Missing role falls back to student.
	cfg.User.Role = ""
	id = Resolve("", "", "", cfg)
	if id.Role != "student" {
		t.Errorf("Role = %q, want student", id.Role)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		id      Identity
		wantErr bool
	}{
		{"valid student", Identity{UserID: "u1", Role: "student"}, false},
		{"valid recruiter", Identity{UserID: "user_2-a", Role: "recruiter"}, false},
		{"valid university", Identity{UserID: "uni", Role: "university"}, false},
		{"valid admin", Identity{UserID: "root", Role: "admin"}, false},
		{"empty id", Identity{UserID: "", Role: "student"}, true},
		{"bad id chars", Identity{UserID: "a b", Role: "student"}, true},
		{"unknown role", Identity{UserID: "u1", Role: "mentor"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.id.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
