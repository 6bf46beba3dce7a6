package id_test

import (
	"strings"
	"testing"

	"github.com/xraph/apimarket/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix string
	}{
		{"NotificationID", id.NewNotificationID, "evt_"},
		{"TransferID", id.NewTransferID, "xfer_"},
		{"CommitID", id.NewCommitID, "cmt_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		newFn   func() id.ID
		parseFn func(string) (id.ID, error)
	}{
		{"NotificationID", id.NewNotificationID, id.ParseNotificationID},
		{"TransferID", id.NewTransferID, id.ParseTransferID},
		{"CommitID", id.NewCommitID, id.ParseCommitID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.newFn()
			parsed, err := tt.parseFn(original.String())
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if parsed.String() != original.String() {
				t.Errorf("round-trip mismatch: %q != %q", parsed.String(), original.String())
			}
		})
	}
}

func TestCrossTypeRejection(t *testing.T) {
	if _, err := id.ParseTransferID(id.NewNotificationID().String()); err == nil {
		t.Error("expected ParseTransferID to reject an evt_ id")
	}
	if _, err := id.ParseCommitID(id.NewTransferID().String()); err == nil {
		t.Error("expected ParseCommitID to reject an xfer_ id")
	}
}

func TestParseEmpty(t *testing.T) {
	if _, err := id.Parse(""); err == nil {
		t.Error("expected error for empty string")
	}
}

func TestNilID(t *testing.T) {
	var i id.ID
	if !i.IsNil() {
		t.Error("zero-value ID should be nil")
	}
	if i.String() != "" {
		t.Errorf("expected empty string, got %q", i.String())
	}
}

func TestValueScan(t *testing.T) {
	original := id.NewCommitID()
	val, err := original.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}

	var scanned id.ID
	if scanErr := scanned.Scan(val); scanErr != nil {
		t.Fatalf("Scan failed: %v", scanErr)
	}
	if scanned.String() != original.String() {
		t.Errorf("mismatch: %q != %q", scanned.String(), original.String())
	}

	var nilID id.ID
	val, err = nilID.Value()
	if err != nil {
		t.Fatalf("Value(nil) failed: %v", err)
	}
	if val != nil {
		t.Errorf("expected nil value for nil ID, got %v", val)
	}
}

func TestCounterIDs(t *testing.T) {
	tests := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{"1", 1, false},
		{"42", 42, false},
		{"0", 0, true},
		{"", 0, true},
		{"-3", 0, true},
		{"abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			svc, err := id.ParseServiceID(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseServiceID(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && uint64(svc) != tt.want {
				t.Errorf("ParseServiceID(%q) = %d, want %d", tt.in, svc, tt.want)
			}

			sub, err := id.ParseSubscriptionID(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSubscriptionID(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && sub.String() != tt.in {
				t.Errorf("String() = %q, want %q", sub.String(), tt.in)
			}
		})
	}

	var zero id.ServiceID
	if !zero.IsNil() {
		t.Error("zero ServiceID should be nil")
	}
}
