package chain

// Minimal ABI fragments for the contracts this module touches. Only the
// functions actually called are declared.

// MangroveABI covers the core exchange: maker provision balance.
const MangroveABI = `[
	{
		"inputs": [{"name": "maker", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"name": "balance", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

// ReaderABI covers the exchange's read helper: unpacked per-offer-list
// configuration and provision quoting at the current global gas price.
const ReaderABI = `[
	{
		"inputs": [{
			"components": [
				{"name": "outbound_tkn", "type": "address"},
				{"name": "inbound_tkn", "type": "address"},
				{"name": "tickSpacing", "type": "uint256"}
			],
			"name": "olKey", "type": "tuple"
		}],
		"name": "localUnpacked",
		"outputs": [
			{"name": "active", "type": "bool"},
			{"name": "fee", "type": "uint256"},
			{"name": "density", "type": "uint256"},
			{"name": "offer_gasbase", "type": "uint256"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{
				"components": [
					{"name": "outbound_tkn", "type": "address"},
					{"name": "inbound_tkn", "type": "address"},
					{"name": "tickSpacing", "type": "uint256"}
				],
				"name": "olKey", "type": "tuple"
			},
			{"name": "gasreq", "type": "uint256"},
			{"name": "gasprice", "type": "uint256"}
		],
		"name": "getProvision",
		"outputs": [{"name": "provision", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

// KandelABI covers a deployed position: static and mutable parameters,
// reserves, and the retract/populate writes.
const KandelABI = `[
	{"inputs": [], "name": "BASE", "outputs": [{"name": "", "type": "address"}], "stateMutability": "view", "type": "function"},
	{"inputs": [], "name": "QUOTE", "outputs": [{"name": "", "type": "address"}], "stateMutability": "view", "type": "function"},
	{"inputs": [], "name": "TICK_SPACING", "outputs": [{"name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
	{
		"inputs": [],
		"name": "params",
		"outputs": [
			{"name": "gasprice", "type": "uint32"},
			{"name": "gasreq", "type": "uint24"},
			{"name": "stepSize", "type": "uint32"},
			{"name": "pricePoints", "type": "uint32"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "baseQuoteTickOffset",
		"outputs": [{"name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"name": "ba", "type": "uint8"}],
		"name": "reserveBalance",
		"outputs": [{"name": "balance", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"name": "", "type": "uint8"}],
		"name": "offeredVolume",
		"outputs": [{"name": "volume", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"name": "ba", "type": "uint8"},
			{"name": "index", "type": "uint256"}
		],
		"name": "getOffer",
		"outputs": [
			{"name": "tick", "type": "int256"},
			{"name": "gives", "type": "uint256"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"name": "from", "type": "uint256"},
			{"name": "to", "type": "uint256"}
		],
		"name": "retractOffers",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{"name": "from", "type": "uint256"},
			{"name": "to", "type": "uint256"},
			{"name": "baseQuoteTickIndex0", "type": "int256"},
			{"name": "_baseQuoteTickOffset", "type": "uint256"},
			{"name": "firstAskIndex", "type": "uint256"},
			{"name": "bidGives", "type": "uint256"},
			{"name": "askGives", "type": "uint256"},
			{
				"components": [
					{"name": "gasprice", "type": "uint32"},
					{"name": "gasreq", "type": "uint24"},
					{"name": "stepSize", "type": "uint32"},
					{"name": "pricePoints", "type": "uint32"}
				],
				"name": "parameters", "type": "tuple"
			},
			{"name": "baseAmount", "type": "uint256"},
			{"name": "quoteAmount", "type": "uint256"}
		],
		"name": "populateFromOffset",
		"outputs": [],
		"stateMutability": "payable",
		"type": "function"
	}
]`

// SeederABI covers the position factory.
const SeederABI = `[
	{
		"inputs": [
			{
				"components": [
					{"name": "outbound_tkn", "type": "address"},
					{"name": "inbound_tkn", "type": "address"},
					{"name": "tickSpacing", "type": "uint256"}
				],
				"name": "olKeyBaseQuote", "type": "tuple"
			},
			{"name": "liquiditySharing", "type": "bool"}
		],
		"name": "sow",
		"outputs": [{"name": "kandel", "type": "address"}],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "owner", "type": "address"},
			{"indexed": true, "name": "baseQuoteOlKeyHash", "type": "bytes32"},
			{"indexed": true, "name": "quoteBaseOlKeyHash", "type": "bytes32"},
			{"indexed": false, "name": "kandel", "type": "address"}
		],
		"name": "NewKandel",
		"type": "event"
	}
]`

// ERC20ABI covers allowance management and token metadata.
const ERC20ABI = `[
	{
		"inputs": [
			{"name": "owner", "type": "address"},
			{"name": "spender", "type": "address"}
		],
		"name": "allowance",
		"outputs": [{"name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"name": "spender", "type": "address"},
			{"name": "amount", "type": "uint256"}
		],
		"name": "approve",
		"outputs": [{"name": "", "type": "bool"}],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [{"name": "account", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{"inputs": [], "name": "symbol", "outputs": [{"name": "", "type": "string"}], "stateMutability": "view", "type": "function"},
	{"inputs": [], "name": "name", "outputs": [{"name": "", "type": "string"}], "stateMutability": "view", "type": "function"},
	{"inputs": [], "name": "decimals", "outputs": [{"name": "", "type": "uint8"}], "stateMutability": "view", "type": "function"}
]`
