package automation

import "testing"

func TestExtractApprovalDigit_PicksLargestFont(t *testing.T) {
	s := newFakeSession()
	s.elements[digitNodeSelector] = []*fakeElement{
		{text: "12", fontPx: 20},
		{text: "123", fontPx: 48},
		{text: "99", fontPx: 56},
	}

	if got := ExtractApprovalDigit(s); got != "99" {
		t.Fatalf("ExtractApprovalDigit() = %q, want %q", got, "99")
	}
}

func TestExtractApprovalDigit_NoMatch(t *testing.T) {
	s := newFakeSession()
	s.elements[digitNodeSelector] = []*fakeElement{
		{text: "Approve the sign in", fontPx: 56},
		{text: "1", fontPx: 48},
		{text: "1234", fontPx: 48},
	}

	if got := ExtractApprovalDigit(s); got != "" {
		t.Fatalf("ExtractApprovalDigit() = %q, want empty", got)
	}
}

func TestExtractApprovalDigit_SkipsHiddenNodes(t *testing.T) {
	s := newFakeSession()
	s.elements[digitNodeSelector] = []*fakeElement{
		{text: "42", fontPx: 80, hidden: true},
		{text: "17", fontPx: 24},
	}

	if got := ExtractApprovalDigit(s); got != "17" {
		t.Fatalf("ExtractApprovalDigit() = %q, want %q", got, "17")
	}
}

func TestExtractApprovalDigit_TrimsWhitespace(t *testing.T) {
	s := newFakeSession()
	s.elements[digitNodeSelector] = []*fakeElement{
		{text: "  73  ", fontPx: 56},
	}

	if got := ExtractApprovalDigit(s); got != "73" {
		t.Fatalf("ExtractApprovalDigit() = %q, want %q", got, "73")
	}
}

func TestExtractApprovalDigit_UnparseableFontLosesTies(t *testing.T) {
	s := newFakeSession()
	s.elements[digitNodeSelector] = []*fakeElement{
		{text: "11", fontPx: 0}, // font-size could not be parsed
		{text: "22", fontPx: 14},
	}

	if got := ExtractApprovalDigit(s); got != "22" {
		t.Fatalf("ExtractApprovalDigit() = %q, want %q", got, "22")
	}
}
