package extension

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/apimarket"
	"github.com/xraph/apimarket/store/memory"
	"github.com/xraph/apimarket/types"
)

func TestMergeConfigurations(t *testing.T) {
	tests := []struct {
		name         string
		yaml, direct Config
		want         Config
	}{
		{
			name: "defaults fill gaps",
			want: Config{PlatformFeeBps: 250},
		},
		{
			name:   "yaml wins",
			yaml:   Config{Owner: "alice", PlatformFeeBps: 100},
			direct: Config{Owner: "bob", PlatformFeeBps: 500},
			want:   Config{Owner: "alice", PlatformFeeBps: 100},
		},
		{
			name:   "programmatic fills",
			direct: Config{Owner: "bob", PlatformFeeBps: 500, DisableMigrate: true},
			want:   Config{Owner: "bob", PlatformFeeBps: 500, DisableMigrate: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mergeConfigurations(tt.yaml, tt.direct); got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

type unmigratable struct {
	*memory.Store
}

func (unmigratable) Migrate(context.Context) error { return errors.New("no ddl rights") }

func TestBuildLedgerOpts(t *testing.T) {
	ctx := context.Background()
	e := &Extension{}
	WithOwner("alice")(e)
	WithPlatformFee(400)(e)
	WithDisableMigrate()(e)
	e.config = mergeWithDefaults(e.config)

	l := apimarket.New(unmigratable{memory.New()}, e.buildLedgerOpts()...)
	if err := l.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := l.Owner(); got != types.Principal("alice") {
		t.Errorf("Owner = %s, want alice", got)
	}
	if got := l.PlatformFee(); got != 400 {
		t.Errorf("PlatformFee = %s, want 400bps", got)
	}
}

func TestBuildLedgerOptsRequiresOwner(t *testing.T) {
	e := &Extension{config: DefaultConfig()}
	l := apimarket.New(memory.New(), e.buildLedgerOpts()...)
	if err := l.Start(context.Background()); !errors.Is(err, apimarket.ErrZeroPrincipal) {
		t.Fatalf("Start err = %v, want ErrZeroPrincipal", err)
	}
}
