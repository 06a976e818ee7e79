// Package config provides helper functionality to read service configurations from JSON or YAML config files and
// OS ENV variables. The default configuration can be overridden first by:
//
// - a valid JSON config file (see cmd/conf.json for a sample), or YAML if its extension is .yaml or .yml, and then by
//
// - OS ENV variables: prefixed with BALCHECK_ (ie. BALCHECK_DBTYPE, BALCHECK_DBCONN, ...). All OS ENV variables
// should be valid strings, except for BALCHECK_CHAINS and BALCHECK_QUEUES which should hold valid JSON arrays. For
// example:
// # export BALCHECK_CHAINS='[{"id":56,"node":"https://bsc-dataseed.binance.org"},{"id":5,"node":""}]'
// # export BALCHECK_QUEUES='[56,97]'
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tarancss/balcheck/lib/balance"
	"github.com/tarancss/balcheck/lib/block"
	"github.com/tarancss/balcheck/lib/chain"
	"github.com/tarancss/balcheck/lib/util"
)

// Default configuration variables.
var (
	DBTypeDefault     = "mongodb"
	DBConnDefault     = "" // no audit store
	RestfulEPDefault  = ""
	PortDefault       = "3030"
	SSLPortDefault    = ""
	SSLCertDefault    = ""
	SSLKeyDefault     = ""
	MbTypeDefault     = "amqp"
	MbConnDefault     = "" // no message broker
	DriverDefault     = block.ETHEREUM
	PolicyDefault     = balance.ABORT
	RPCTimeoutDefault = 15 // seconds
	MaxWalletsDefault = 100
)


// Errors returned.
var (
	ErrPolicy = errors.New("unknown failure policy")
	ErrDriver = errors.New("unknown blockchain driver")
	ErrLimit  = errors.New("invalid wallets limit")
)

// ServiceConfig contains the fields of the gateway and verify programs: database, API endpoint, ports, SSL cert and
// key, message broker type and url, blockchain driver, chain endpoint overrides, chains served through the message
// broker, balance failure policy, RPC timeout, maximum wallets per verification and debug tracing.
type ServiceConfig struct {
	DBType          string           `json:"dbtype" yaml:"dbtype"`
	DBConn          string           `json:"dbconn" yaml:"dbconn"`
	RestfulEndpoint string           `json:"endpoint" yaml:"endpoint"`
	Port            string           `json:"port" yaml:"port"`
	SSLPort         string           `json:"sslport" yaml:"sslport"`
	SSLCert         string           `json:"sslcert" yaml:"sslcert"`
	SSLKey          string           `json:"sslkey" yaml:"sslkey"`
	MbType          string           `json:"mbtype" yaml:"mbtype"`
	MbConn          string           `json:"mbconn" yaml:"mbconn"`
	Driver          string           `json:"driver" yaml:"driver"`
	Chains          []chain.Endpoint `json:"chains" yaml:"chains"`
	Queues          []int64          `json:"queues" yaml:"queues"`
	Policy          string           `json:"policy" yaml:"policy"`
	RPCTimeout      int              `json:"rpcTimeout" yaml:"rpcTimeout"`
	MaxWallets      int              `json:"maxWallets" yaml:"maxWallets"`
	Debug           bool             `json:"debug" yaml:"debug"`
}

// Timeout returns the RPC timeout as a duration.
func (c ServiceConfig) Timeout() time.Duration {
	return time.Duration(c.RPCTimeout) * time.Second
}

// Redacted returns a copy of c safe to log: passwords in the database and broker urls and the chain secrets are
// masked.
func (c ServiceConfig) Redacted() ServiceConfig {
	c.DBConn = util.Redact(c.DBConn)
	c.MbConn = util.Redact(c.MbConn)

	chains := make([]chain.Endpoint, len(c.Chains))

	for i, e := range c.Chains {
		if e.Secret != "" {
			e.Secret = util.Mask
		}

		e.Node = util.Redact(e.Node)
		chains[i] = e
	}

	c.Chains = chains

	return c
}
