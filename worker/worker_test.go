package worker

import (
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tarancss/balcheck/lib/block"
	"github.com/tarancss/balcheck/lib/block/mock"
	"github.com/tarancss/balcheck/lib/chain"
	"github.com/tarancss/balcheck/lib/identity"
	"github.com/tarancss/balcheck/lib/msg"
	"github.com/tarancss/balcheck/verifier"
)

const wallet = "0x8C1DF8d7BcBE1395Ef66508F76a8732EaB65FBeE"

// memBroker is an in-memory message broker. Requests are delivered one at a time like the AMQP consumer does.
type memBroker struct {
	l      sync.Mutex
	reqs   map[int64]chan msg.VerifyReq
	acked  int
	events chan msg.VerifyEvent
	fail   int64 // chain whose requests cannot be consumed
}

func newBroker() *memBroker {
	return &memBroker{reqs: map[int64]chan msg.VerifyReq{}, events: make(chan msg.VerifyEvent, 10)}
}

func (b *memBroker) Setup(interface{}) error { return nil }

func (b *memBroker) Close() error {
	b.l.Lock()
	defer b.l.Unlock()

	for id, ch := range b.reqs {
		close(ch)
		delete(b.reqs, id)
	}

	return nil
}

func (b *memBroker) SendRequest(chainID int64, r msg.VerifyReq) error {
	b.l.Lock()
	ch := b.reqs[chainID]
	b.l.Unlock()

	ch <- r

	return nil
}

func (b *memBroker) GetOutcomes(int64, *sync.Mutex) (<-chan msg.VerifyEvent, <-chan error, error) {
	return b.events, nil, nil
}

func (b *memBroker) GetReqs(chainID int64, mut *sync.Mutex) (<-chan msg.VerifyReq, <-chan error, error) {
	if chainID == b.fail {
		return nil, nil, errors.New("no queue")
	}

	in := make(chan msg.VerifyReq)
	out := make(chan msg.VerifyReq)

	b.l.Lock()
	b.reqs[chainID] = in
	b.l.Unlock()

	go func() {
		defer close(out)

		for r := range in {
			out <- r
			mut.Lock() // wait for the request to be processed

			b.l.Lock()
			b.acked++
			b.l.Unlock()
		}
	}()

	return out, make(chan error), nil
}

func (b *memBroker) SendOutcome(chainID int64, e msg.VerifyEvent) error {
	b.events <- e

	return nil
}

func (b *memBroker) outcome(t *testing.T) msg.VerifyEvent {
	t.Helper()

	select {
	case e := <-b.events:
		return e
	case <-time.After(5 * time.Second):
		t.Fatal("no outcome published")
	}

	return msg.VerifyEvent{}
}

func TestWorker(t *testing.T) {
	node := mock.NewNode()
	defer node.Close()

	node.SetNative(wallet, big.NewInt(100))

	reg := chain.New([]chain.Endpoint{{ID: chain.BNBMainnet, Node: node.URL}, {ID: chain.EthereumGoerli, Node: ""}})
	v := verifier.New(reg, block.NewPool(block.ETHEREUM, reg), verifier.Options{})

	mb := newBroker()
	mb.fail = chain.PolygonMainnet

	w := New(mb, v, []int64{chain.BNBMainnet, chain.EthereumGoerli, chain.PolygonMainnet})
	defer w.Stop()

	finished := w.Work()

	ids := []identity.Identity{{Connection: identity.SIWE, UserID: "siwe|eip155%3A56%3A" + wallet}}
	dec := int32(0)

	// valid
	_ = mb.SendRequest(chain.BNBMainnet, msg.VerifyReq{ID: "r1", ChainID: chain.BNBMainnet, Identities: ids,
		MinimumAmount: decimal.NewFromInt(100), ContractDecimals: &dec})

	if e := mb.outcome(t); e.ID != "r1" || !e.Valid || e.Message != "100" || e.Reason != verifier.OK || e.Error != "" {
		t.Errorf("outcome:%+v", e)
	}

	// below the minimum, request id generated
	_ = mb.SendRequest(chain.BNBMainnet, msg.VerifyReq{ChainID: chain.BNBMainnet, Identities: ids,
		MinimumAmount: decimal.NewFromInt(1)})

	if e := mb.outcome(t); e.ID == "" || e.Valid || e.Reason != verifier.BelowThreshold {
		t.Errorf("outcome:%+v", e)
	}

	// request sent to the queue of another chain
	_ = mb.SendRequest(chain.BNBMainnet, msg.VerifyReq{ID: "r3", ChainID: chain.BNBTestnet, Identities: ids})

	if e := mb.outcome(t); e.ID != "r3" || e.Valid || e.Error == "" || e.ChainID != chain.BNBMainnet {
		t.Errorf("outcome:%+v", e)
	}

	// chain removed from the registry
	_ = mb.SendRequest(chain.EthereumGoerli, msg.VerifyReq{ID: "r4", ChainID: chain.EthereumGoerli, Identities: ids})

	if e := mb.outcome(t); e.ID != "r4" || e.Valid || e.Error == "" {
		t.Errorf("outcome:%+v", e)
	}

	// decimals out of range
	neg := int32(-3)
	_ = mb.SendRequest(chain.BNBMainnet, msg.VerifyReq{ID: "r6", ChainID: chain.BNBMainnet, Identities: ids,
		MinimumAmount: decimal.NewFromInt(1), ContractDecimals: &neg})

	if e := mb.outcome(t); e.ID != "r6" || e.Valid || e.Error == "" {
		t.Errorf("outcome:%+v", e)
	}

	// node failure
	node.Fail(wallet)
	_ = mb.SendRequest(chain.BNBMainnet, msg.VerifyReq{ID: "r5", ChainID: chain.BNBMainnet, Identities: ids})

	if e := mb.outcome(t); e.ID != "r5" || e.Valid || e.Error == "" {
		t.Errorf("outcome:%+v", e)
	}

	// closing the broker finishes the consumers
	_ = mb.Close()

	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not finish")
	}

	mb.l.Lock()
	defer mb.l.Unlock()

	if mb.acked != 6 {
		t.Errorf("acked %d requests", mb.acked)
	}
}
