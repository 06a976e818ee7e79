// Package amqp implements the message broker interface for AMQP compliant brokers (ie RabbitMQ)
package amqp

import (
	"encoding/json"
	"log"
	"strconv"
	"sync"

	"github.com/streadway/amqp"

	"github.com/tarancss/balcheck/lib/msg"
	"github.com/tarancss/balcheck/lib/util"
)

// Exchanges and routing keys.
const (
	requests    = "vr"
	outcomes    = "vo"
	keyVerify   = ".verify"
	keyOutcome  = ".outcome"
	contentType = "application/json"
)

// Amqp implements a connection to a broker and a channel for reuse.
type Amqp struct {
	conn *amqp.Connection
	l    sync.Mutex
	ch   *amqp.Channel
}

// New instantiates a new amqp broker.
func New(uri string) (*Amqp, error) {
	r := Amqp{}

	var err error

	if r.conn, err = amqp.Dial(uri); err != nil {
		return nil, err
	}

	log.Printf("Connected to %s", util.Redact(uri))

	return &r, nil
}

// Setup obtains an amqp channel and declares the message broker exchanges:
//
// - vr ("verification requests"): clients publish requests to this exchange with key <chainId>.verify
//
// - vo ("verification outcomes"): the worker publishes outcomes to this exchange with key <chainId>.outcome
func (r *Amqp) Setup(x interface{}) error {
	// obtain a one-use channel
	channel, err := r.conn.Channel()
	if err != nil {
		return err
	}
	defer channel.Close()
	// declare exchanges
	if err = channel.ExchangeDeclare(requests, "topic", true, false, false, false, nil); err != nil {
		return err
	}

	return channel.ExchangeDeclare(outcomes, "topic", true, false, false, false, nil)
}

// Close terminates gracefully the connection to the AMQP message broker
func (r *Amqp) Close() error {
	r.l.Lock()
	if r.ch != nil {
		if err := r.ch.Close(); err != nil {
			log.Printf("Error closing amqp.Channel:%v", err)
		}

		r.ch = nil

		log.Printf("amqp.Channel closed!")
	}
	r.l.Unlock()

	return r.conn.Close()
}

// channel returns the reusable channel, opening it if not present.
func (r *Amqp) channel() (*amqp.Channel, error) {
	r.l.Lock()
	defer r.l.Unlock()

	if r.ch == nil {
		var err error
		if r.ch, err = r.conn.Channel(); err != nil {
			return nil, err
		}
	}

	return r.ch, nil
}

// publish marshals v to JSON and publishes it to exchange with key.
func (r *Amqp) publish(exchange, key, header string, v interface{}) error {
	jsonDoc, err := json.Marshal(v)
	if err != nil {
		return err
	}

	ch, err := r.channel()
	if err != nil {
		return err
	}

	m := amqp.Publishing{
		Headers:     amqp.Table{"x-verify-id": header},
		Body:        jsonDoc,
		ContentType: contentType,
	}

	return ch.Publish(exchange, key, false, false, m)
}

// SendRequest publishes a verification request to the "vr" exchange.
func (r *Amqp) SendRequest(chainID int64, vr msg.VerifyReq) error {
	net := strconv.FormatInt(chainID, 10)

	err := r.publish(requests, net+keyVerify, vr.ID, vr)
	if err != nil {
		log.Printf("[%s] Error sending request to message broker %v", net, err)
	}

	return err
}

// SendOutcome publishes the outcome of a verification to the "vo" exchange.
func (r *Amqp) SendOutcome(chainID int64, e msg.VerifyEvent) error {
	net := strconv.FormatInt(chainID, 10)

	err := r.publish(outcomes, net+keyOutcome, e.ID, e)
	if err != nil {
		log.Printf("[%s] Error sending outcome to message broker %v", net, err)
	}

	return err
}

// consume declares a durable queue bound to exchange with key and returns its deliveries.
func (r *Amqp) consume(exchange, key, queue, consumer string) (<-chan amqp.Delivery, error) {
	ch, err := r.channel()
	if err != nil {
		return nil, err
	}

	if _, err = ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, err
	}

	if err = ch.QueueBind(queue, key, exchange, false, nil); err != nil {
		return nil, err
	}

	return ch.Consume(queue, consumer, false, false, false, false, nil)
}

// GetReqs consumes requests from the "vr" exchange for the specified chain pushing them to the returned channel. The
// Mutex pointer is provided to ensure the consumed message has been fully dealt with by the management function, so
// the message consumed is only acknowledged when the mutex is unlocked.
func (r *Amqp) GetReqs(chainID int64, mut *sync.Mutex) (<-chan msg.VerifyReq, <-chan error, error) {
	net := strconv.FormatInt(chainID, 10)

	msgs, err := r.consume(requests, net+keyVerify, requests+net, "worker-"+net)
	if err != nil {
		return nil, nil, err
	}
	// define channels to return
	reqs := make(chan msg.VerifyReq)
	errs := make(chan error)
	// start routine to consume messages from broker
	go func() {
		defer close(reqs)
		defer close(errs)

		for m := range msgs {
			req := new(msg.VerifyReq)
			if err := json.Unmarshal(m.Body, req); err != nil {
				_ = m.Nack(false, false)
				errs <- err

				continue
			}
			reqs <- *req
			mut.Lock() // wait for the worker to finish processing the request
			_ = m.Ack(false)
		}
	}()

	return reqs, errs, nil
}

// GetOutcomes consumes outcomes from the "vo" exchange for the specified chain pushing them to the returned channel.
// The Mutex pointer is used as in GetReqs.
func (r *Amqp) GetOutcomes(chainID int64, mut *sync.Mutex) (<-chan msg.VerifyEvent, <-chan error, error) {
	net := strconv.FormatInt(chainID, 10)

	msgs, err := r.consume(outcomes, net+keyOutcome, outcomes+net, "client-"+net)
	if err != nil {
		return nil, nil, err
	}

	eves := make(chan msg.VerifyEvent)
	errs := make(chan error)

	go func() {
		defer close(eves)
		defer close(errs)

		for m := range msgs {
			eve := new(msg.VerifyEvent)
			if err := json.Unmarshal(m.Body, eve); err != nil {
				_ = m.Nack(false, false)
				errs <- err

				continue
			}
			eves <- *eve
			mut.Lock() // wait for the client to finish processing the outcome
			_ = m.Ack(false)
		}
	}()

	return eves, errs, nil
}
