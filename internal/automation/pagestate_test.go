package automation

import "testing"

func TestAuthenticated_Cookies(t *testing.T) {
	tests := []struct {
		name    string
		cookies map[string]string
		want    bool
	}{
		{"session cookie", map[string]string{"user_session": "tok"}, true},
		{"logged_in yes", map[string]string{"logged_in": "yes"}, true},
		{"logged_in YES", map[string]string{"logged_in": "YES"}, true},
		{"logged_in no", map[string]string{"logged_in": "no"}, false},
		{"dotcom user", map[string]string{"dotcom_user": "octocat"}, true},
		{"dotcom user blank", map[string]string{"dotcom_user": "  "}, false},
		{"no cookies", map[string]string{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newFakeSession()
			s.cookies = tt.cookies
			if got := Authenticated(s); got != tt.want {
				t.Fatalf("Authenticated() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAuthenticated_ProfileMenu(t *testing.T) {
	s := newFakeSession()
	s.elements[profileMenuSelector] = []*fakeElement{{}}

	if !Authenticated(s) {
		t.Fatal("expected profile menu to count as authenticated")
	}
}

func TestAuthenticated_UserLoginMeta(t *testing.T) {
	s := newFakeSession()
	s.elements[userLoginMetaSelect] = []*fakeElement{{attrs: map[string]string{"content": "octocat"}}}

	if !Authenticated(s) {
		t.Fatal("expected populated user-login meta to count as authenticated")
	}

	s.elements[userLoginMetaSelect] = []*fakeElement{{attrs: map[string]string{"content": ""}}}
	if Authenticated(s) {
		t.Fatal("expected empty user-login meta to not count as authenticated")
	}
}

func TestIsDeviceApprovalPage(t *testing.T) {
	s := newFakeSession()
	s.url = "https://github.com/sessions/verified-device"
	if !IsDeviceApprovalPage(s) {
		t.Fatal("expected verified-device URL to be detected")
	}

	s = newFakeSession()
	s.url = "https://github.com/session"
	s.source = "<html>Open GitHub Mobile and approve sign in</html>"
	if !IsDeviceApprovalPage(s) {
		t.Fatal("expected page markers to be detected")
	}

	// An authenticated session is never a device-approval page.
	s.authenticate()
	if IsDeviceApprovalPage(s) {
		t.Fatal("authenticated session must not be a device-approval page")
	}
}

func TestIsOTPPageAndLoginError(t *testing.T) {
	s := newFakeSession()
	if IsOTPPage(s) || HasLoginError(s) {
		t.Fatal("empty page must have no OTP input and no error banner")
	}

	s.elements[otpInputSelector] = []*fakeElement{{}}
	s.elements[flashErrorSelector] = []*fakeElement{{text: "Incorrect username or password."}}

	if !IsOTPPage(s) {
		t.Fatal("expected OTP input to be detected")
	}
	if !HasLoginError(s) {
		t.Fatal("expected error banner to be detected")
	}
}
