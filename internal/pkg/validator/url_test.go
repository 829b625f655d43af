package validator

import "testing"

func TestIsCallbackURL(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"https://crm.example.com/webhooks/umnico", false},
		{"http://203.0.113.10:8080/hook", false},
		{"", true},
		{"ftp://example.com/hook", true},
		{"/relative/path", true},
		{"https://localhost/hook", true},
		{"http://127.0.0.1/hook", true},
		{"http://10.1.2.3/hook", true},
		{"http://[::1]/hook", true},
	}

	for _, tt := range tests {
		err := IsCallbackURL(tt.url)
		if (err != nil) != tt.wantErr {
			t.Errorf("IsCallbackURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
		}
	}
}

func TestIsSubscriptionName(t *testing.T) {
	if err := IsSubscriptionName("crm"); err != nil {
		t.Errorf("Expected valid name, got %v", err)
	}
	if err := IsSubscriptionName("   "); err == nil {
		t.Error("Expected error for blank name")
	}
}
