package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics(t *testing.T) {
	Evaluation(Chain(56), "ok", 2)
	Evaluation(Chain(56), "ok", 1)
	Evaluation(Chain(56), "below_threshold", 1)
	Evaluation(Unsupported, "no_wallets", 0)

	if got := testutil.ToFloat64(Evaluations.WithLabelValues("56", "ok")); got != 2 {
		t.Errorf("evaluations ok:%v", got)
	}

	if got := testutil.ToFloat64(Evaluations.WithLabelValues(Unsupported, "no_wallets")); got != 1 {
		t.Errorf("evaluations unsupported:%v", got)
	}

	obs := RPC(97)
	obs("eth_getBalance", 10*time.Millisecond, nil)
	obs("eth_getBalance", 10*time.Millisecond, errors.New("down"))

	if got := testutil.ToFloat64(RPCErrors.WithLabelValues("97", "eth_getBalance")); got != 1 {
		t.Errorf("rpc errors:%v", got)
	}

	Request("http", 200)

	if got := testutil.ToFloat64(Requests.WithLabelValues("http", "200")); got != 1 {
		t.Errorf("requests:%v", got)
	}
}
