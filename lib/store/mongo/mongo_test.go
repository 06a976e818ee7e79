// +build integration

package mongo

import (
	"testing"
	"time"

	"github.com/tarancss/balcheck/lib/store"
)

var uri = "mongodb://localhost:27017"

// TestDecisions requires a MongoDB server at localhost:27017.
func TestDecisions(t *testing.T) {
	m, err := New(uri)
	if err != nil {
		t.Fatalf("err:%v", err)
	}
	defer m.CloseMongo()

	const chainID = 31337

	if err = m.DeleteDecisions(chainID); err != nil {
		t.Errorf("DeleteDecisions err:%v", err)
	}

	if err = m.SaveDecision(store.Decision{ChainID: chainID}); err != store.ErrNoID {
		t.Errorf("SaveDecision without id err:%v", err)
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	for i, id := range []string{"a", "b", "c"} {
		d := store.Decision{ID: id, ChainID: chainID, Minimum: "1", Decimals: 18, Wallets: i, Valid: i == 2,
			Reason: "below_threshold", TS: now.Add(time.Duration(i) * time.Second)}
		if err = m.SaveDecision(d); err != nil {
			t.Errorf("SaveDecision err:%v", err)
		}
	}

	ds, err := m.GetDecisions(chainID, 2)
	if err != nil || len(ds) != 2 || ds[0].ID != "c" || !ds[0].Valid || ds[1].ID != "b" {
		t.Errorf("GetDecisions:%+v err:%v", ds, err)
	}
}
