package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/climalink/climalink/eligibility"
	"github.com/climalink/climalink/txflow"
	"github.com/urfave/cli/v2"
)

// Git SHA1 commit hash of the release (set via linker flags)
var gitCommit = ""

var app *cli.App

func defaultHistoryDSN() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".climalink", "history.db")
	}
	return filepath.Join(home, ".climalink", "history.db")
}

// Commonly used command line flags.
var (
	rpcFlag = &cli.StringFlag{
		Name:    "rpc",
		Usage:   "Ethereum JSON-RPC endpoint",
		EnvVars: []string{"CLIMALINK_RPC"},
	}
	networkFlag = &cli.StringFlag{
		Name:    "network",
		Usage:   "network profile (TOML) with rpc url, chain id, contracts and explorer",
		EnvVars: []string{"CLIMALINK_NETWORK"},
	}
	chainIDFlag = &cli.Int64Flag{
		Name:    "chain-id",
		Usage:   "expected chain id, 0 accepts any",
		EnvVars: []string{"CLIMALINK_CHAIN_ID"},
	}
	tokenFlag = &cli.StringFlag{
		Name:    "token",
		Usage:   "CLT token contract address",
		EnvVars: []string{"CLIMALINK_TOKEN"},
	}
	climateFlag = &cli.StringFlag{
		Name:    "climate",
		Usage:   "Climate contract address",
		EnvVars: []string{"CLIMALINK_CLIMATE"},
	}
	daoFlag = &cli.StringFlag{
		Name:    "dao",
		Usage:   "DAO contract address",
		EnvVars: []string{"CLIMALINK_DAO"},
	}
	keyfileFlag = &cli.StringFlag{
		Name:    "keyfile",
		Usage:   "keystore file of the signing account",
		EnvVars: []string{"CLIMALINK_KEYFILE"},
	}
	passwordFlag = &cli.StringFlag{
		Name:    "password",
		Usage:   "password of the keyfile",
		EnvVars: []string{"CLIMALINK_PASSWORD"},
	}
	passwordFileFlag = &cli.StringFlag{
		Name:  "passwordfile",
		Usage: "the file that contains the password for the keyfile",
	}
	accountFlag = &cli.StringFlag{
		Name:  "account",
		Usage: "account to inspect when no keyfile is given",
	}
	approvalSettleFlag = &cli.DurationFlag{
		Name:    "approval-settle",
		Usage:   "pause between a confirmed approval and the dependent call",
		Value:   txflow.DefaultApprovalSettle,
		EnvVars: []string{"CLIMALINK_APPROVAL_SETTLE"},
	}
	refreshDelayFlag = &cli.DurationFlag{
		Name:    "refresh-delay",
		Usage:   "delay before re-reading eligibility after a successful transaction",
		Value:   eligibility.DefaultRefreshDelay,
		EnvVars: []string{"CLIMALINK_REFRESH_DELAY"},
	}
	timeoutFlag = &cli.DurationFlag{
		Name:  "timeout",
		Usage: "overall command timeout, 0 waits for the chain indefinitely",
	}
	pollFlag = &cli.DurationFlag{
		Name:  "poll-interval",
		Usage: "receipt polling interval",
		Value: chainPollInterval,
	}
	historyDSNFlag = &cli.StringFlag{
		Name:    "history-dsn",
		Usage:   "transaction history store: sqlite file path or postgres:// url",
		Value:   defaultHistoryDSN(),
		EnvVars: []string{"CLIMALINK_HISTORY_DSN"},
	}
	apiURLFlag = &cli.StringFlag{
		Name:    "api-url",
		Usage:   "base url of climalink-api",
		Value:   "http://localhost:5000",
		EnvVars: []string{"CLIMALINK_API_URL"},
	}
	logLevelFlag = &cli.StringFlag{
		Name:    "log-level",
		Usage:   "log level",
		Value:   "warning",
		EnvVars: []string{"CLIMALINK_LOG_LEVEL"},
	}
	jsonFlag = &cli.BoolFlag{
		Name:  "json",
		Usage: "output JSON instead of human-readable format",
	}
)

func init() {
	app = cli.NewApp()
	app.Name = "climalink"
	app.Usage = "stake, report and govern on ClimaLink"
	app.Version = "1.0.0"
	if gitCommit != "" {
		app.Version += "-" + gitCommit
	}
	app.Flags = []cli.Flag{
		rpcFlag,
		networkFlag,
		chainIDFlag,
		tokenFlag,
		climateFlag,
		daoFlag,
		keyfileFlag,
		passwordFlag,
		passwordFileFlag,
		approvalSettleFlag,
		refreshDelayFlag,
		timeoutFlag,
		pollFlag,
		historyDSNFlag,
		apiURLFlag,
		logLevelFlag,
	}
	app.Commands = []*cli.Command{
		commandRole,
		commandRegister,
		commandStake,
		commandJoinValidator,
		commandJoinDAO,
		commandClaim,
		commandReport,
		commandProposal,
		commandHistory,
		commandWeather,
		commandWatch,
	}
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
