package block

import (
	"errors"
	"testing"

	"github.com/tarancss/balcheck/lib/block/mock"
	"github.com/tarancss/balcheck/lib/block/types"
	"github.com/tarancss/balcheck/lib/chain"
)

func TestDial(t *testing.T) {
	if _, err := Dial(ETHEREUM, "", ""); !errors.Is(err, types.ErrNoEndpoint) {
		t.Errorf("Dial without node err:%v", err)
	}

	if _, err := Dial("solana", "http://localhost:8899", ""); !errors.Is(err, types.ErrDriver) {
		t.Errorf("Dial with unknown driver err:%v", err)
	}

	c, err := Dial("", "http://localhost:8545", "")
	if err != nil {
		t.Fatalf("Dial err:%v", err)
	}
	c.Close()
}

func TestPool(t *testing.T) {
	node := mock.NewNode()
	defer node.Close()

	p := NewPool(ETHEREUM, chain.New([]chain.Endpoint{{ID: chain.BNBMainnet, Node: node.URL}}))
	defer p.End()

	c1, err := p.Get(chain.BNBMainnet)
	if err != nil {
		t.Fatalf("Get err:%v", err)
	}

	c2, err := p.Get(chain.BNBMainnet)
	if err != nil || c1 != c2 {
		t.Errorf("Get did not reuse the client, err:%v", err)
	}

	if _, err = p.Get(42); !errors.Is(err, types.ErrNoEndpoint) {
		t.Errorf("Get of unknown chain err:%v", err)
	}
}
