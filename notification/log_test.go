package notification

import (
	"testing"

	"github.com/xraph/apimarket/id"
)

func TestLogAppendAssignsSequence(t *testing.T) {
	var l Log

	first := l.Append(Notification{Kind: KindServiceRegistered, ServiceID: 1})
	second := l.Append(Notification{Kind: KindServiceDeactivated, ServiceID: 1})

	if first.Seq != 1 || second.Seq != 2 {
		t.Fatalf("seqs = %d, %d, want 1, 2", first.Seq, second.Seq)
	}
	if l.Len() != 2 {
		t.Errorf("Len = %d, want 2", l.Len())
	}
	if l.NextSeq() != 3 {
		t.Errorf("NextSeq = %d, want 3", l.NextSeq())
	}
}

func TestLogSince(t *testing.T) {
	var l Log
	for i := 1; i <= 5; i++ {
		l.Append(Notification{Kind: KindAPICallMade, SubscriptionID: id.SubscriptionID(i)})
	}

	tests := []struct {
		name     string
		after    uint64
		limit    int
		wantSeqs []uint64
	}{
		{"from start", 0, 0, []uint64{1, 2, 3, 4, 5}},
		{"after cursor", 3, 0, []uint64{4, 5}},
		{"limited", 1, 2, []uint64{2, 3}},
		{"limit larger than rest", 4, 10, []uint64{5}},
		{"at end", 5, 0, nil},
		{"past end", 9, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := l.Since(tt.after, tt.limit)
			if len(got) != len(tt.wantSeqs) {
				t.Fatalf("got %d entries, want %d", len(got), len(tt.wantSeqs))
			}
			for i, n := range got {
				if n.Seq != tt.wantSeqs[i] {
					t.Errorf("entry %d: seq = %d, want %d", i, n.Seq, tt.wantSeqs[i])
				}
			}
		})
	}
}

func TestLogSinceReturnsCopy(t *testing.T) {
	var l Log
	l.Append(Notification{Kind: KindServiceRegistered, Name: "weather"})

	got := l.Since(0, 0)
	got[0].Name = "tampered"

	if l.Since(0, 0)[0].Name != "weather" {
		t.Error("Since must not expose the backing slice")
	}
}

func TestLogRestoreSkipsOutOfOrder(t *testing.T) {
	var l Log
	l.Restore(
		Notification{Seq: 1, Kind: KindServiceRegistered},
		Notification{Seq: 1, Kind: KindServiceRegistered},
		Notification{Seq: 3, Kind: KindServiceDeactivated},
		Notification{Seq: 2, Kind: KindServiceSubscribed},
	)

	if l.Len() != 2 {
		t.Fatalf("Len = %d, want 2", l.Len())
	}
	if got := l.Since(1, 0)[0].Kind; got != KindServiceSubscribed {
		t.Errorf("second entry kind = %s, want %s", got, KindServiceSubscribed)
	}
}
