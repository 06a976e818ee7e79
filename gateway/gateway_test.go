package gateway

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/tarancss/balcheck/lib/block"
	"github.com/tarancss/balcheck/lib/block/mock"
	"github.com/tarancss/balcheck/lib/block/types"
	"github.com/tarancss/balcheck/lib/chain"
	"github.com/tarancss/balcheck/lib/store"
	"github.com/tarancss/balcheck/verifier"
)

const (
	wallet = "0x6A1FFe04D63f892F079C30fB619b8db5fE17fF9c"
	lnr    = "0xc1A59a17F87ba6651Eb8E8F707db7672647c45bD"
)

// memDB is an in-memory audit store.
type memDB struct {
	l  sync.Mutex
	ds []store.Decision
}

func (m *memDB) SaveDecision(d store.Decision) error {
	m.l.Lock()
	m.ds = append([]store.Decision{d}, m.ds...)
	m.l.Unlock()

	return nil
}

func (m *memDB) GetDecisions(chainID int64, limit int) ([]store.Decision, error) {
	m.l.Lock()
	defer m.l.Unlock()

	var ds []store.Decision

	for _, d := range m.ds {
		if (chainID == 0 || d.ChainID == chainID) && len(ds) < limit {
			ds = append(ds, d)
		}
	}

	return ds, nil
}

func newGateway(t *testing.T, audit store.DB) (*mock.Node, http.Handler) {
	t.Helper()

	node := mock.NewNode()
	node.SetNative(wallet, big.NewInt(1500))
	node.AddToken(lnr, "Lunar", "LNR", 18)
	node.SetToken(lnr, wallet, big.NewInt(7))

	reg := chain.New([]chain.Endpoint{{ID: chain.BNBMainnet, Node: node.URL}})
	v := verifier.New(reg, block.NewPool(block.ETHEREUM, reg), verifier.Options{DB: audit})

	t.Cleanup(func() {
		v.Close()
		node.Close()
	})

	return node, New("", audit, nil, v).Router()
}

func do(h http.Handler, method, uri, body string) (int, Response) {
	var res Response

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, uri, strings.NewReader(body)))
	_ = json.NewDecoder(rec.Body).Decode(&res)

	return rec.Code, res
}

func TestHome(t *testing.T) {
	_, h := newGateway(t, nil)

	if code, res := do(h, "GET", "/", ""); code != http.StatusOK || res.Body == "" {
		t.Errorf("code:%d res:%+v", code, res)
	}
}

func TestChains(t *testing.T) {
	_, h := newGateway(t, nil)

	code, res := do(h, "GET", "/chains", "")
	if code != http.StatusOK {
		t.Fatalf("code:%d res:%+v", code, res)
	}

	var cs []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}

	if err := json.Unmarshal([]byte(res.Body), &cs); err != nil || len(cs) != len(chain.Defaults) ||
		cs[0].ID != chain.EthereumMainnet || cs[2].Name != "bsc" {
		t.Errorf("chains:%+v err:%v", cs, err)
	}
}

func TestVerify(t *testing.T) {
	_, h := newGateway(t, nil)

	siwe := `{"connection":"siwe","user_id":"siwe|eip155%3A56%3A` + wallet + `"}`

	for i, tc := range []struct {
		body   string
		code   int
		valid  bool
		reason string
		msg    string
	}{
		{`{"identities":[` + siwe + `],"chainId":56,"minimumAmount":"0.000000000000001"}`, 200, true, verifier.OK, "1500"},
		{`{"identities":[` + siwe + `],"chainId":56,"minimumAmount":1501,"contractDecimals":0}`, 200, false,
			verifier.BelowThreshold, "The combined wallets did not meet the minimum requirement. Aggregate balance: 1500"},
		{`{"identities":[` + siwe + `],"chainId":56,"minimumAmount":"7","contractAddress":"` + lnr + `","contractDecimals":0}`,
			200, true, verifier.OK, "7"},
		{`{"identities":[],"chainId":56}`, 200, false, verifier.NoIdentities, verifier.MsgNoIdentities},
		{`{"identities":[` + siwe + `],"chainId":56,"contractAddress":"0xabc"}`, 200, false, verifier.InvalidContract,
			"The contract address '0xabc' is not valid."},
		{`{"identities":[` + siwe + `],"chainId":42}`, 404, false, "", ""},
		{`{"identities":`, 400, false, "", ""},
		{`{"identities":[` + siwe + `],"chainId":56,"minimumAmount":"one"}`, 400, false, "", ""},
	} {
		code, res := do(h, "POST", "/verify", tc.body)
		if code != tc.code {
			t.Errorf("[%d] code:%d res:%+v", i, code, res)

			continue
		}

		if code != http.StatusOK {
			if res.Error == "" {
				t.Errorf("[%d] missing error:%+v", i, res)
			}

			continue
		}

		var o verifyRes
		if err := json.Unmarshal([]byte(res.Body), &o); err != nil {
			t.Errorf("[%d] err:%v", i, err)

			continue
		}

		if o.ID == "" || o.Valid != tc.valid || o.Reason != tc.reason || o.Message != tc.msg {
			t.Errorf("[%d] outcome:%+v", i, o)
		}
	}
}

func TestVerifyLimits(t *testing.T) {
	node, h := newGateway(t, nil)

	siwe := `{"connection":"siwe","user_id":"siwe|eip155:56:` + wallet + `"}`

	for _, dec := range []int{-3, 256, 2147483647} {
		body := fmt.Sprintf(`{"identities":[%s],"chainId":56,"minimumAmount":"1","contractDecimals":%d}`, siwe, dec)
		if code, res := do(h, "POST", "/verify", body); code != http.StatusBadRequest || res.Error == "" {
			t.Errorf("decimals %d code:%d res:%+v", dec, code, res)
		}
	}

	ids := make([]string, 0, 101)
	for i := 1; i <= 101; i++ {
		ids = append(ids, `{"connection":"siwe","user_id":"siwe|eip155:56:`+common.BigToAddress(big.NewInt(int64(i))).Hex()+`"}`)
	}

	body := `{"identities":[` + strings.Join(ids, ",") + `],"chainId":56}`
	if code, res := do(h, "POST", "/verify", body); code != http.StatusBadRequest || res.Error == "" {
		t.Errorf("too many wallets code:%d res:%+v", code, res)
	}

	body = `{"id":"` + strings.Repeat("a", maxBody) + `","identities":[` + siwe + `],"chainId":56}`
	if code, res := do(h, "POST", "/verify", body); code != http.StatusBadRequest || res.Error == "" {
		t.Errorf("large body code:%d res:%+v", code, res)
	}

	if n := node.Calls(""); n != 0 {
		t.Errorf("%d RPC calls made for rejected requests", n)
	}
}

func TestVerifyNodeDown(t *testing.T) {
	node, h := newGateway(t, nil)
	node.Fail(wallet)

	body := `{"identities":[{"connection":"siwe","user_id":"siwe|eip155:56:` + wallet + `"}],"chainId":56}`
	if code, res := do(h, "POST", "/verify", body); code != http.StatusBadGateway || res.Error == "" {
		t.Errorf("code:%d res:%+v", code, res)
	}
}

func TestToken(t *testing.T) {
	_, h := newGateway(t, nil)

	code, res := do(h, "GET", "/token/"+lnr+"?chain=56", "")
	if code != http.StatusOK {
		t.Fatalf("code:%d res:%+v", code, res)
	}

	var tok types.Token
	if err := json.Unmarshal([]byte(res.Body), &tok); err != nil || tok.Symbol != "LNR" || tok.Decimals != 18 ||
		tok.Address != lnr {
		t.Errorf("token:%+v err:%v", tok, err)
	}

	for uri, expected := range map[string]int{
		"/token/" + lnr:                  http.StatusBadRequest,
		"/token/" + lnr + "?chain=x":     http.StatusBadRequest,
		"/token/" + lnr + "?chain=42":    http.StatusNotFound,
		"/token/0x12?chain=56":           http.StatusBadRequest,
		"/token/" + wallet + "?chain=56": http.StatusNotFound,
	} {
		if code, res = do(h, "GET", uri, ""); code != expected || res.Error == "" {
			t.Errorf("%s code:%d res:%+v", uri, code, res)
		}
	}
}

func TestDecisions(t *testing.T) {
	_, h := newGateway(t, nil)

	if code, _ := do(h, "GET", "/decisions", ""); code != http.StatusNotFound {
		t.Errorf("decisions without audit store code:%d", code)
	}

	_, h = newGateway(t, &memDB{})

	body := `{"id":"req-1","identities":[{"connection":"siwe","user_id":"siwe|eip155:56:` + wallet + `"}],"chainId":56}`
	if code, _ := do(h, "POST", "/verify", body); code != http.StatusOK {
		t.Fatalf("verify code:%d", code)
	}

	if code, _ := do(h, "POST", "/verify", `{"identities":[],"chainId":97}`); code != http.StatusOK {
		t.Fatalf("verify code:%d", code)
	}

	code, res := do(h, "GET", "/decisions?chain=56&limit=5", "")
	if code != http.StatusOK {
		t.Fatalf("code:%d res:%+v", code, res)
	}

	var ds []store.Decision
	if err := json.Unmarshal([]byte(res.Body), &ds); err != nil || len(ds) != 1 || ds[0].ID != "req-1" || !ds[0].Valid {
		t.Errorf("decisions:%+v err:%v", ds, err)
	}

	if code, _ = do(h, "GET", "/decisions?limit=0", ""); code != http.StatusBadRequest {
		t.Errorf("limit 0 code:%d", code)
	}

	if code, _ = do(h, "GET", "/decisions?chain=42", ""); code != http.StatusNotFound {
		t.Errorf("unsupported chain code:%d", code)
	}
}
