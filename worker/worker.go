// Package worker implements the consumer of verification requests sent through the message broker. For every chain
// served, requests are read from the broker, verified and their outcomes published back to the broker.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/tarancss/balcheck/lib/metrics"
	"github.com/tarancss/balcheck/lib/msg"
	"github.com/tarancss/balcheck/lib/threshold"
	"github.com/tarancss/balcheck/verifier"
)

// ErrWrongChain is set in the outcome of a request consumed from the queue of another chain.
var ErrWrongChain = errors.New("request chain does not match the queue")

// Worker implements a broker worker.
type Worker struct {
	v      *verifier.Verifier
	mb     msg.MsgBroker
	chains []int64
	ctx    context.Context
	cancel context.CancelFunc
}

// New instantiates a new worker serving the requests of chains.
func New(mb msg.MsgBroker, v *verifier.Verifier, chains []int64) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	return &Worker{v: v, mb: mb, chains: chains, ctx: ctx, cancel: cancel}
}

// Work starts a go routine consuming the requests of each chain. The returned channel receives a message when all
// the consumers have finished, which happens when the broker is closed.
func (w *Worker) Work() chan string {
	ret := make(chan string, 1)
	// channel to wait for chain consumers
	done := make(chan string, len(w.chains))

	n := 0

	for _, chainID := range w.chains {
		if err := w.ManageRequests(chainID, done); err != nil {
			log.Printf("[%d] Cannot consume verification requests from broker, err:%v", chainID, err)

			continue
		}

		n++
	}
	// routine to wait for all chains to complete
	go func() {
		for i := 1; i < n+1; i++ {
			log.Printf("Work, channel %d/%d returned: %s", i, n, <-done)
		}
		ret <- "Done!"
	}()

	return ret
}

// Stop cancels the verifications in course.
func (w *Worker) Stop() {
	w.cancel()
}

// ManageRequests starts a go routine to receive and verify the requests for chainID. When the request channel is
// closed, the routine writes into done and ends.
func (w *Worker) ManageRequests(chainID int64, done chan<- string) error {
	mut := new(sync.Mutex)

	mut.Lock()

	reqCh, errCh, err := w.mb.GetReqs(chainID, mut)
	if err != nil {
		return fmt.Errorf("worker: cannot get requests: %w", err)
	}

	// launch request channel reader
	go func() {
		log.Printf("[%d] Start listening to verification request channel", chainID)

		for {
			select {
			case req, ok := <-reqCh:
				if !ok {
					log.Printf("[%d] Stop listening to verification request channel", chainID)
					done <- fmt.Sprintf("[%d] Done!", chainID)

					return
				}

				w.handle(chainID, req)
				mut.Unlock()
			case e, ok := <-errCh:
				if !ok {
					errCh = nil

					continue
				}

				log.Printf("[%d] Received error %+v", chainID, e)
			}
		}
	}()

	return nil
}

// handle verifies req and publishes its outcome.
func (w *Worker) handle(chainID int64, req msg.VerifyReq) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	eve := msg.VerifyEvent{ID: req.ID, ChainID: chainID}
	st := http.StatusOK

	var err error

	if req.ChainID != chainID {
		err = fmt.Errorf("%w: %d", ErrWrongChain, req.ChainID)
		st = http.StatusBadRequest
	} else {
		var o verifier.Outcome

		o, err = w.v.Verify(w.ctx, req.Identities, verifier.FromRequest(req))

		switch {
		case err == nil:
			eve.Valid, eve.Message, eve.Reason = o.Valid, o.Message, o.Reason
		case errors.Is(err, verifier.ErrUnsupportedChain):
			st = http.StatusNotFound
		case errors.Is(err, verifier.ErrTooManyWallets), errors.Is(err, threshold.ErrDecimals):
			st = http.StatusBadRequest
		default:
			st = http.StatusBadGateway
		}
	}

	if err != nil {
		eve.Error = err.Error()
	}

	metrics.Request("amqp", st)
	log.Printf("[%d] Verified request %s outcome:%+v", chainID, req.ID, eve)

	if err = w.mb.SendOutcome(chainID, eve); err != nil {
		log.Printf("[%d] Error sending outcome of %s:%v", chainID, req.ID, err)
	}
}
