// Package gateway implements the balance verification service.
//
// The service exposes a RESTful API to verify the wallets of a logged-in user against a minimum balance, list the
// supported chains, look up ERC20 token details and read the audit log of past decisions.
package gateway

import (
	"context"
	"log"
	"net/http"

	"github.com/tarancss/balcheck/lib/msg"
	"github.com/tarancss/balcheck/lib/store"
	"github.com/tarancss/balcheck/lib/store/db"
	"github.com/tarancss/balcheck/verifier"
)

// Gateway contains the data necessary to deliver the service.
type Gateway struct {
	dbtype string
	db     store.DB // audit store, optional
	v      *verifier.Verifier
	mb     msg.MsgBroker // optional
	s      *http.Server  // http server
	ss     *http.Server  // https server
	sc     chan struct{} // http server channel used for graceful shutdowns
}

// New returns a pointer to a new Gateway service.
func New(dbtype string, dbConn store.DB, mb msg.MsgBroker, v *verifier.Verifier) *Gateway {
	return &Gateway{
		dbtype: dbtype,
		db:     dbConn,
		mb:     mb,
		v:      v,
		sc:     make(chan struct{}),
	}
}

// Stop shuts down the http servers implementing the RESTful API and closes gracefully the connections to the
// blockchain nodes, message broker and database.
func (g *Gateway) Stop() {
	var err error
	// shutdown http server
	if g.s != nil {
		if err = g.s.Shutdown(context.Background()); err != nil {
			log.Printf("Error in http server shutdown:%v", err)
		}
	}

	if g.ss != nil {
		if err = g.ss.Shutdown(context.Background()); err != nil {
			log.Printf("Error in https server shutdown:%v", err)
		}
	}

	close(g.sc) // close server channels to indicate shutdowns have finished
	// close blockchain clients
	g.v.Close()
	// close message broker
	if g.mb != nil {
		if err = g.mb.Close(); err != nil {
			log.Printf("Error closing message broker:%v", err)
		}
	}
	// close database
	if g.db != nil {
		err = db.Close(g.dbtype, g.db)
		log.Printf("Disconnecting %v database, err:%v\n", g.dbtype, err)
	}
}
