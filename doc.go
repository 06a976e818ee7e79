// Package balcheck and its sub-packages implement a wallet balance verification service for users authenticated with
// Sign In With Ethereum.
/*
Given the identity records of a logged-in user, balcheck decides whether the wallets the user signed in with hold,
together, a minimum amount of the native currency of an EVM chain or of an ERC20 token, and replies the decision with
a message: the aggregate balance when the minimum is met, or the reason why it is not.

Verification

The verifier (package verifier) takes the wallet addresses of the "siwe" identities (package lib/identity), skips those
that are not valid EIP-55 addresses (package lib/address), resolves the chain id to the node serving it (package
lib/chain), queries all the balances at the same time (package lib/balance) and compares their sum against the minimum
scaled by the decimals of the currency (package lib/threshold).

A blockchain layer (package lib/block) provides the clients to the chain nodes. Two drivers are available: go-ethereum's
ethclient (default) and tarancss/ethcli, which supports basic authentication against the node.

Architecture

The gateway service (package gateway, cmd/gateway) exposes an HTTP RESTful API to verify identities, list the supported
chains, get token details and read the audit log of decisions. If a message broker is configured (package lib/msg),
a worker (package worker) also consumes verification requests per chain and publishes their outcomes back to the
broker.

Decisions, without any balance amounts, can be recorded in a MongoDB or PostgreSQL database (package lib/store).

The configuration is read from a JSON or YAML file and OS ENV variables (package lib/config). The service can be
monitored via a Prometheus API by setting the flag "-m" at startup (package lib/metrics).

Verify

cmd/verify runs a single verification from the command line and prints the outcome as a table.

*/
package balcheck
