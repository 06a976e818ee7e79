// Package main: balance verification service.
//
// The service serves the RESTful API and, if a message broker is configured, consumes the verification requests of
// the chains listed in the queues configuration. Decisions are audited when a database connection is configured.
package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tarancss/balcheck/gateway"
	"github.com/tarancss/balcheck/lib/block"
	"github.com/tarancss/balcheck/lib/chain"
	"github.com/tarancss/balcheck/lib/config"
	"github.com/tarancss/balcheck/lib/msg"
	"github.com/tarancss/balcheck/lib/msg/amqp"
	"github.com/tarancss/balcheck/lib/store"
	"github.com/tarancss/balcheck/lib/store/db"
	"github.com/tarancss/balcheck/verifier"
	"github.com/tarancss/balcheck/worker"
)

func main() {
	// get command line flags
	confPath := flag.String("c", "", "flag to get configuration from json or yaml file")
	monitor := flag.Bool("m", false, "flag to monitor the server with Prometheus at http://localhost:9100/metrics")
	flag.Parse()

	// extract configuration
	conf, err := config.ExtractConfiguration(*confPath)
	if err != nil {
		panic(err)
	}

	log.Printf("Configuration:%+v", conf.Redacted())

	// connect to database
	var dbConn store.DB

	if conf.DBConn != "" {
		if dbConn, err = db.New(conf.DBType, conf.DBConn); err != nil {
			panic(err)
		}

		log.Printf("Connecting to database:%+v\n", conf.Redacted().DBConn)
	}

	// load chains, clients are connected on first use
	reg := chain.New(conf.Chains)
	v := verifier.New(reg, block.NewPool(conf.Driver, reg), verifier.Options{
		Policy:     conf.Policy,
		Timeout:    conf.Timeout(),
		Debug:      conf.Debug,
		DB:         dbConn,
		MaxWallets: conf.MaxWallets,
	})

	log.Printf("%d chains loaded", len(reg.Chains()))

	// load Prometheus monitor
	if *monitor {
		go func() {
			log.Println("Serving metrics API")

			h := http.NewServeMux()

			h.Handle("/metrics", promhttp.Handler())
			log.Printf("Metrics server:%v", http.ListenAndServe(":9100", h))
		}()
	}

	// load message broker
	var mb msg.MsgBroker

	switch {
	case conf.MbConn == "":
		log.Print("No message broker configured")
	case conf.MbType == "amqp":
		var r *amqp.Amqp
		if r, err = amqp.New(conf.MbConn); err != nil {
			time.Sleep(10 * time.Second) // wait 10s for AMQP to be ready and try to reconnect

			if r, err = amqp.New(conf.MbConn); err != nil {
				panic(err)
			}
		}

		if err = r.Setup(nil); err != nil {
			panic(err)
		}

		mb = r
	default:
		log.Printf("Unknown message broker type: %s\n", conf.MbType)
	}

	// create gateway service
	g := gateway.New(conf.DBType, dbConn, mb, v)

	// start the broker worker
	var w *worker.Worker

	if mb != nil && len(conf.Queues) > 0 {
		w = worker.New(mb, v, conf.Queues)
		done := w.Work()

		go func() {
			log.Printf("Worker: %s\n", <-done)
		}()
	}

	// capture CTRL+C or docker's SIGTERM for gracious exit
	finish := make(chan int)

	go func() {
		sigchan := make(chan os.Signal, 10)
		signal.Notify(sigchan, os.Interrupt, syscall.SIGTERM)
		<-sigchan
		log.Println("Program killed !")
		// do last actions and wait for all write operations to end
		if w != nil {
			w.Stop()
		}
		g.Stop()
		close(finish)
	}()

	// init RESTful API, wait for its return and log response
	log.Printf("Gateway: %s\n", g.Init(conf.RestfulEndpoint, conf.Port, conf.SSLPort, conf.SSLCert, conf.SSLKey))

	<-finish
}
