package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/tarancss/balcheck/lib/block/types"
	"github.com/tarancss/balcheck/lib/chain"
	"github.com/tarancss/balcheck/lib/metrics"
	"github.com/tarancss/balcheck/lib/msg"
	"github.com/tarancss/balcheck/lib/store"
	"github.com/tarancss/balcheck/lib/threshold"
	"github.com/tarancss/balcheck/verifier"
)

const (
	defaultLimit = 20
	maxBody      = 1 << 20 // bytes of a verification request
)

// Errors returned to client requests.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrMissingChain = errors.New("undefined chain - missing query: ?chain=<chainId>")
	ErrNoAddr       = errors.New("undefined address - missing in uri")
	ErrNoAudit      = errors.New("audit store not available")
)

// Response defines the data structure returned to the client making the http request.
type Response struct {
	Body  string `json:"body"`
	Error string `json:"error,omitempty"`
}

// verifyRes is the body replied to verification requests.
type verifyRes struct {
	ID string `json:"id"`
	verifier.Outcome
}

// reply writes res to the requester with status, logs the request and counts it.
func reply(rw http.ResponseWriter, r *http.Request, status int, body interface{}, err error) {
	var res Response

	if err != nil {
		res.Error = fmt.Sprintf("%s", err)
	} else {
		tmp, _ := json.Marshal(body)
		res.Body = string(tmp)
	}
	// log request
	log.Printf("httpreq from %v %s status:%d res:%+v err:%v\n", r.RemoteAddr, r.RequestURI, status, body, err)
	metrics.Request("http", status)
	// reply
	rw.Header().Set("Content-Type", "application/json;charset=utf8")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(&res)
}

// status returns the http status for the error of a request.
func status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, verifier.ErrUnsupportedChain), errors.Is(err, types.ErrNoContract), errors.Is(err, ErrNoAudit):
		return http.StatusNotFound
	case errors.Is(err, ErrBadRequest), errors.Is(err, ErrMissingChain), errors.Is(err, ErrNoAddr),
		errors.Is(err, verifier.ErrInvalidContract), errors.Is(err, verifier.ErrTooManyWallets),
		errors.Is(err, threshold.ErrDecimals):
		return http.StatusBadRequest
	}

	return http.StatusBadGateway
}

// homeHandler just replies a welcome message to the client.
func (g *Gateway) homeHandler(rw http.ResponseWriter, r *http.Request) {
	var res Response
	// log request
	log.Printf("httpreq from %v %s\n", r.RemoteAddr, r.RequestURI)
	// just reply a welcome message
	res.Body = "Hello, this is your wallet balance verifier!"
	// reply
	rw.Header().Set("Content-Type", "application/json;charset=utf8")
	_ = json.NewEncoder(rw).Encode(res)
}

// chainsHandler replies the chains supported.
func (g *Gateway) chainsHandler(rw http.ResponseWriter, r *http.Request) {
	type chainRes struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}

	l := g.v.Chains()
	cs := make([]chainRes, 0, len(l))

	for _, e := range l {
		cs = append(cs, chainRes{ID: e.ID, Name: e.Name})
	}

	reply(rw, r, http.StatusOK, cs, nil)
}

// verifyHandler verifies the wallets of the identities in the request against its minimum amount and replies the
// outcome.
func (g *Gateway) verifyHandler(rw http.ResponseWriter, r *http.Request) {
	var err error

	var req msg.VerifyReq

	var res verifyRes

	defer func() {
		if err != nil {
			reply(rw, r, status(err), nil, err)
		} else {
			reply(rw, r, http.StatusOK, res, nil)
		}
	}()

	// get request
	r.Body = http.MaxBytesReader(rw, r.Body, maxBody)

	if err = json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("Error decoding verification request:%v\n", err)

		err = fmt.Errorf("%w: %v", ErrBadRequest, err)

		return
	}

	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	res.ID = req.ID
	res.Outcome, err = g.v.Verify(r.Context(), req.Identities, verifier.FromRequest(req))
}

// tokenHandler replies the name, symbol and decimals of the ERC20 token at the address in the uri for the chain in
// the query.
func (g *Gateway) tokenHandler(rw http.ResponseWriter, r *http.Request) {
	var err error

	var tok types.Token

	defer func() {
		reply(rw, r, status(err), tok, err)
	}()

	if err = r.ParseForm(); err != nil {
		log.Print("Error parsing request URL")

		err = fmt.Errorf("%w: %v", ErrBadRequest, err)

		return
	}

	address, ok := mux.Vars(r)["address"]
	if !ok || address == "" {
		err = ErrNoAddr

		return
	}

	c, ok := r.Form["chain"]
	if !ok || len(c) != 1 { // we only allow 1 chain per request
		err = ErrMissingChain

		return
	}

	chainID, errP := strconv.ParseInt(c[0], 0, 64)
	if errP != nil {
		err = fmt.Errorf("%w: %v", ErrMissingChain, errP)

		return
	}

	tok, err = g.v.Token(r.Context(), chainID, address)
}

// decisionsHandler replies the latest decisions saved in the audit store. The query may restrict them to a chain
// (?chain=<chainId>) and set how many are returned (?limit=<n>).
func (g *Gateway) decisionsHandler(rw http.ResponseWriter, r *http.Request) {
	var err error

	var ds []store.Decision

	defer func() {
		reply(rw, r, status(err), ds, err)
	}()

	if g.db == nil {
		err = ErrNoAudit

		return
	}

	if err = r.ParseForm(); err != nil {
		err = fmt.Errorf("%w: %v", ErrBadRequest, err)

		return
	}

	var chainID int64

	if c := r.Form.Get("chain"); c != "" {
		if chainID, err = strconv.ParseInt(c, 0, 64); err != nil {
			err = fmt.Errorf("%w: %v", ErrMissingChain, err)

			return
		}

		if !supported(g.v.Chains(), chainID) {
			err = fmt.Errorf("%w %d", verifier.ErrUnsupportedChain, chainID)

			return
		}
	}

	limit := defaultLimit

	if l := r.Form.Get("limit"); l != "" {
		if limit, err = strconv.Atoi(l); err != nil || limit <= 0 {
			err = fmt.Errorf("%w: invalid limit %s", ErrBadRequest, l)

			return
		}
	}

	ds, err = g.db.GetDecisions(chainID, limit)
}

func supported(l []chain.Endpoint, chainID int64) bool {
	for _, e := range l {
		if e.ID == chainID {
			return true
		}
	}

	return false
}
