package chain

// Contract ABIs for the ClimaLink contracts.
// Only the functions and events used by this repository are listed.

// TokenABI is the ABI of the CLT ERC20 token with built-in staking.
const TokenABI = `[
	{
		"constant": true,
		"inputs": [{"name": "account", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"name": "", "type": "uint256"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [
			{"name": "owner", "type": "address"},
			{"name": "spender", "type": "address"}
		],
		"name": "allowance",
		"outputs": [{"name": "", "type": "uint256"}],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "spender", "type": "address"},
			{"name": "amount", "type": "uint256"}
		],
		"name": "approve",
		"outputs": [{"name": "", "type": "bool"}],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [{"name": "amount", "type": "uint256"}],
		"name": "stake",
		"outputs": [],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [{"name": "amount", "type": "uint256"}],
		"name": "unstake",
		"outputs": [],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [{"name": "account", "type": "address"}],
		"name": "stakedBalance",
		"outputs": [{"name": "", "type": "uint256"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [{"name": "account", "type": "address"}],
		"name": "canMint",
		"outputs": [{"name": "", "type": "bool"}],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [],
		"name": "mintReward",
		"outputs": [],
		"type": "function"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "owner", "type": "address"},
			{"indexed": true, "name": "spender", "type": "address"},
			{"indexed": false, "name": "value", "type": "uint256"}
		],
		"name": "Approval",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "account", "type": "address"},
			{"indexed": false, "name": "amount", "type": "uint256"}
		],
		"name": "Staked",
		"type": "event"
	}
]`

// ClimateABI is the ABI of the weather report registry.
const ClimateABI = `[
	{
		"constant": false,
		"inputs": [],
		"name": "registerReporter",
		"outputs": [],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [],
		"name": "becomeValidator",
		"outputs": [],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "latitude", "type": "int256"},
			{"name": "longitude", "type": "int256"},
			{"name": "temperature", "type": "int256"},
			{"name": "humidity", "type": "uint256"},
			{"name": "weatherCondition", "type": "string"}
		],
		"name": "submitReport",
		"outputs": [{"name": "reportId", "type": "uint256"}],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "reportId", "type": "uint256"},
			{"name": "isValid", "type": "bool"}
		],
		"name": "validateReport",
		"outputs": [],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [{"name": "account", "type": "address"}],
		"name": "userRoles",
		"outputs": [{"name": "", "type": "uint8"}],
		"type": "function"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "reportId", "type": "uint256"},
			{"indexed": true, "name": "reporter", "type": "address"}
		],
		"name": "ReportSubmitted",
		"type": "event"
	}
]`

// DAOABI is the ABI of the governance contract.
const DAOABI = `[
	{
		"constant": true,
		"inputs": [{"name": "account", "type": "address"}],
		"name": "isMember",
		"outputs": [{"name": "", "type": "bool"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [],
		"name": "MEMBERSHIP_FEE",
		"outputs": [{"name": "", "type": "uint256"}],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [],
		"name": "joinDAO",
		"outputs": [],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [{"name": "description", "type": "string"}],
		"name": "createProposal",
		"outputs": [{"name": "proposalId", "type": "uint256"}],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "proposalId", "type": "uint256"},
			{"name": "support", "type": "bool"}
		],
		"name": "vote",
		"outputs": [],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [{"name": "proposalId", "type": "uint256"}],
		"name": "executeProposal",
		"outputs": [],
		"type": "function"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "member", "type": "address"}
		],
		"name": "MemberJoined",
		"type": "event"
	}
]`
