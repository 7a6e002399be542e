package email

import "testing"

func TestNewSenderSelectsProvider(t *testing.T) {
	cases := []struct {
		cfg     ProviderConfig
		want    string
		wantErr bool
	}{
		{ProviderConfig{Provider: "smtp", SMTPHost: "localhost", SMTPPort: "1025"}, "smtp", false},
		{ProviderConfig{Provider: "API", APIURL: "http://mail.test/send"}, "email-api", false},
		{ProviderConfig{Provider: "api"}, "", true},
		{ProviderConfig{Provider: "noop"}, "email-noop", false},
		{ProviderConfig{Provider: "pigeon"}, "", true},
	}
	for _, tc := range cases {
		s, err := NewSender(tc.cfg, nil)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%+v: expected error", tc.cfg)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%+v: %v", tc.cfg, err)
		}
		if s.ProviderID() != tc.want {
			t.Fatalf("%+v: expected %s, got %s", tc.cfg, tc.want, s.ProviderID())
		}
	}
}
