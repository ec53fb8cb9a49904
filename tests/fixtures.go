package tests

import (
	"github.com/flokiorg/bitcoinswitch/lnclient"
)

const MockPaymentHash = "320c2c5a1492ccfd5bc7aa4ad9b657d6aaec3cfcc0d1d98413a29af4ac772ccf"
const MockPreimage = "c8aeb44dc6d52fc9a3e8b4e1d1e7a0e5cc7d8a4f6ee2d1f2c9a7b3e4d5f60718"
const MockInvoice = "lnbc2500u1pvjluezpp5qqqsyqcyq5rqwzqfqqqsyqcyq5rqwzqfqqqsyqcyq5rqwzqfqypqdq5xysxxatsyp3k7enxv4jsxqzpuaztrnwngzn3kdzw5hydlzf03qdgm2hdq27cqv3agm2awhz5se903vruatfhq77w3ls4evs3ch9zw97j25emudupq63nyw24cg27h2rspfj9srp"

var MockLNClientTransaction = &lnclient.Transaction{
	Type:        "incoming",
	Invoice:     MockInvoice,
	PaymentHash: MockPaymentHash,
	Preimage:    MockPreimage,
	Amount:      100_000,
}
