package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/climalink/climalink/chain"
	"github.com/climalink/climalink/eligibility"
	"github.com/climalink/climalink/history"
	"github.com/climalink/climalink/txflow"
	"github.com/climalink/climalink/weather"
	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"
)

var (
	forceFlag = &cli.BoolFlag{
		Name:  "force",
		Usage: "submit even if the eligibility check says the contract will refuse",
	}
	latFlag = &cli.Float64Flag{
		Name:     "lat",
		Usage:    "latitude in degrees",
		Required: true,
	}
	lonFlag = &cli.Float64Flag{
		Name:     "lon",
		Usage:    "longitude in degrees",
		Required: true,
	}
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseID(c *cli.Context) (*big.Int, error) {
	arg := c.Args().First()
	id, ok := new(big.Int).SetString(arg, 10)
	if !ok || id.Sign() < 0 {
		return nil, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}

func parseAmount(c *cli.Context) (*big.Int, error) {
	arg := c.Args().First()
	if arg == "" {
		return nil, errors.New("amount is required")
	}
	amount, err := chain.ParseTokens(arg)
	if err != nil {
		return nil, err
	}
	if amount.Sign() <= 0 {
		return nil, errors.New("amount must be positive")
	}
	return amount, nil
}

func printSnapshot(w io.Writer, snap eligibility.Snapshot) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Account:\t%s\n", snap.Account.Hex())
	if !snap.ContractsAvailable {
		fmt.Fprintf(tw, "Contracts:\tunavailable\n")
	}
	fmt.Fprintf(tw, "Role:\t%s\n", snap.Role)
	fmt.Fprintf(tw, "Staked:\t%s CLT\n", snap.Eligibility.StakedAmount)
	fmt.Fprintf(tw, "Balance:\t%s CLT\n", snap.Eligibility.CurrentCLT)
	fmt.Fprintf(tw, "Membership fee:\t%s CLT\n", snap.Eligibility.RequiredCLT)
	fmt.Fprintf(tw, "DAO allowance:\t%s CLT\n", snap.DAOAllowance)
	fmt.Fprintf(tw, "DAO member:\t%t\n", snap.Eligibility.AlreadyMember)
	fmt.Fprintf(tw, "Can join DAO:\t%t\n", snap.Eligibility.CanJoin)
	fmt.Fprintf(tw, "Reward to claim:\t%t\n", snap.CanMint)
	if len(snap.FailedReads) > 0 {
		fmt.Fprintf(tw, "Failed reads:\t%s\n", strings.Join(snap.FailedReads, ", "))
	}
	if next := nextAction(snap); next != "" {
		fmt.Fprintf(tw, "Next step:\tclimalink %s\n", next)
	}
	tw.Flush()
}

var commandRole = &cli.Command{
	Name:  "role",
	Usage: "show the role and DAO eligibility of an account",
	Flags: []cli.Flag{accountFlag, jsonFlag},
	Action: func(c *cli.Context) error {
		e, err := openEnv(c, false)
		if err != nil {
			return err
		}
		defer e.Close()
		if e.account == (common.Address{}) {
			return errors.New("no account: set --keyfile or --account")
		}
		if c.Bool(jsonFlag.Name) {
			return writeJSON(e.out, e.snapshot)
		}
		if !e.session.NetworkOK() {
			fmt.Fprintf(e.out, "Wrong network: node reports chain %s, expected %d\n",
				e.session.ChainID(), e.network.ChainID)
		}
		printSnapshot(e.out, e.snapshot)
		return nil
	},
}

// signingAction opens a signing env, checks action against the eligibility
// snapshot and runs the request built by build.
func signingAction(action string, build func(c *cli.Context, e *env) (txflow.Request, error)) cli.ActionFunc {
	return func(c *cli.Context) error {
		e, err := openEnv(c, true)
		if err != nil {
			return err
		}
		defer e.Close()
		if action != "" && !c.Bool(forceFlag.Name) {
			if err := preflight(action, e.snapshot); err != nil {
				return err
			}
		}
		req, err := build(c, e)
		if err != nil {
			return err
		}
		return e.run(req)
	}
}

var commandRegister = &cli.Command{
	Name:  "register",
	Usage: "register as a weather reporter",
	Flags: []cli.Flag{forceFlag},
	Action: signingAction(actionRegister, func(c *cli.Context, e *env) (txflow.Request, error) {
		return registerRequest(e.contracts, e.account), nil
	}),
}

var commandStake = &cli.Command{
	Name:      "stake",
	Usage:     "stake CLT tokens",
	ArgsUsage: "<amount>",
	Flags: []cli.Flag{&cli.BoolFlag{
		Name:  "unstake",
		Usage: "withdraw staked tokens instead",
	}},
	Action: signingAction("", func(c *cli.Context, e *env) (txflow.Request, error) {
		amount, err := parseAmount(c)
		if err != nil {
			return txflow.Request{}, err
		}
		if c.Bool("unstake") {
			return unstakeRequest(e.contracts, e.account, amount), nil
		}
		return stakeRequest(e.contracts, e.account, amount), nil
	}),
}

var commandJoinValidator = &cli.Command{
	Name:  "join-validator",
	Usage: "become a validator (requires 100 staked CLT)",
	Flags: []cli.Flag{forceFlag},
	Action: signingAction(actionJoinValidator, func(c *cli.Context, e *env) (txflow.Request, error) {
		return joinValidatorRequest(e.contracts, e.account), nil
	}),
}

var commandJoinDAO = &cli.Command{
	Name:  "join-dao",
	Usage: "approve the membership fee and join the DAO",
	Description: `
Joining takes two transactions: an approval of the membership fee to the DAO
contract, skipped when the allowance already covers it, and the join call.

With --stake the given amount is staked first when the account has not staked
enough yet.
`,
	Flags: []cli.Flag{
		forceFlag,
		&cli.StringFlag{
			Name:  "stake",
			Usage: "CLT amount to stake before joining, if needed",
		},
	},
	Action: func(c *cli.Context) error {
		e, err := openEnv(c, true)
		if err != nil {
			return err
		}
		defer e.Close()

		if s := c.String("stake"); s != "" && !e.snapshot.Eligibility.HasStaked {
			amount, err := chain.ParseTokens(s)
			if err != nil {
				return err
			}
			if err := e.run(stakeRequest(e.contracts, e.account, amount)); err != nil {
				return err
			}
		}
		if !c.Bool(forceFlag.Name) {
			if err := preflight(actionJoinDAO, e.snapshot); err != nil {
				return err
			}
		}
		fee, err := chain.ParseTokens(e.snapshot.Eligibility.RequiredCLT)
		if err != nil || fee.Sign() == 0 {
			fee = eligibility.DefaultMembershipFee
		}
		return e.run(joinDAORequest(e.contracts, e.account, fee))
	},
}

var commandClaim = &cli.Command{
	Name:  "claim",
	Usage: "mint the CLT reward earned by validated reports",
	Flags: []cli.Flag{forceFlag},
	Action: signingAction(actionClaim, func(c *cli.Context, e *env) (txflow.Request, error) {
		return claimRequest(e.contracts, e.account), nil
	}),
}

var commandReport = &cli.Command{
	Name:  "report",
	Usage: "submit and validate weather reports",
	Subcommands: []*cli.Command{
		{
			Name:  "submit",
			Usage: "submit a weather observation",
			Description: `
Without --temp the current conditions at --lat/--lon are fetched from
climalink-api and submitted as observed.
`,
			Flags: []cli.Flag{
				latFlag,
				lonFlag,
				&cli.Float64Flag{Name: "temp", Usage: "temperature in °C"},
				&cli.Uint64Flag{Name: "humidity", Usage: "relative humidity in percent"},
				&cli.StringFlag{Name: "condition", Usage: "weather condition, e.g. Clear, Rain"},
			},
			Action: signingAction("", func(c *cli.Context, e *env) (txflow.Request, error) {
				r := chain.Report{
					Latitude:    c.Float64(latFlag.Name),
					Longitude:   c.Float64(lonFlag.Name),
					Temperature: c.Float64("temp"),
					Humidity:    c.Uint64("humidity"),
					Condition:   c.String("condition"),
				}
				if _, _, err := weather.ParseCoordinates(fmt.Sprint(r.Latitude), fmt.Sprint(r.Longitude)); err != nil {
					return txflow.Request{}, err
				}
				if !c.IsSet("temp") {
					api := newAPIClient(c.String(apiURLFlag.Name), 10*time.Second)
					cur, err := api.Current(e.ctx, r.Latitude, r.Longitude)
					if err != nil {
						return txflow.Request{}, fmt.Errorf("fetch current weather: %w", err)
					}
					r = reportFromCurrent(r, cur)
				}
				if r.Condition == "" {
					return txflow.Request{}, errors.New("--condition is required")
				}
				return submitReportRequest(e.contracts, e.account, r), nil
			}),
		},
		{
			Name:      "validate",
			Usage:     "vote on the validity of a report",
			ArgsUsage: "<report id>",
			Flags: []cli.Flag{&cli.BoolFlag{
				Name:  "invalid",
				Usage: "mark the report as invalid",
			}},
			Action: signingAction("", func(c *cli.Context, e *env) (txflow.Request, error) {
				id, err := parseID(c)
				if err != nil {
					return txflow.Request{}, err
				}
				return validateReportRequest(e.contracts, e.account, id, !c.Bool("invalid")), nil
			}),
		},
	},
}

var commandProposal = &cli.Command{
	Name:  "proposal",
	Usage: "create, vote on and execute DAO proposals",
	Subcommands: []*cli.Command{
		{
			Name:      "create",
			Usage:     "create a proposal",
			ArgsUsage: "<description>",
			Action: signingAction("", func(c *cli.Context, e *env) (txflow.Request, error) {
				description := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
				if description == "" {
					return txflow.Request{}, errors.New("description is required")
				}
				return createProposalRequest(e.contracts, e.account, description), nil
			}),
		},
		{
			Name:      "vote",
			Usage:     "vote on a proposal",
			ArgsUsage: "<proposal id>",
			Flags: []cli.Flag{&cli.BoolFlag{
				Name:  "against",
				Usage: "vote against the proposal",
			}},
			Action: signingAction("", func(c *cli.Context, e *env) (txflow.Request, error) {
				id, err := parseID(c)
				if err != nil {
					return txflow.Request{}, err
				}
				return voteRequest(e.contracts, e.account, id, !c.Bool("against")), nil
			}),
		},
		{
			Name:      "execute",
			Usage:     "execute a passed proposal",
			ArgsUsage: "<proposal id>",
			Action: signingAction("", func(c *cli.Context, e *env) (txflow.Request, error) {
				id, err := parseID(c)
				if err != nil {
					return txflow.Request{}, err
				}
				return executeProposalRequest(e.contracts, e.account, id), nil
			}),
		},
	},
}

var commandHistory = &cli.Command{
	Name:  "history",
	Usage: "list recorded transaction outcomes",
	Flags: []cli.Flag{
		accountFlag,
		jsonFlag,
		&cli.IntFlag{Name: "limit", Value: 20, Usage: "number of records"},
	},
	Action: func(c *cli.Context) error {
		store, err := history.Open(c.Context, c.String(historyDSNFlag.Name))
		if err != nil {
			return err
		}
		defer store.Close()

		account := ""
		if hex := c.String(accountFlag.Name); hex != "" {
			if !common.IsHexAddress(hex) {
				return fmt.Errorf("invalid account %q", hex)
			}
			account = strings.ToLower(common.HexToAddress(hex).Hex())
		}
		records, err := store.List(c.Context, account, c.Int("limit"))
		if err != nil {
			return err
		}
		if c.Bool(jsonFlag.Name) {
			return writeJSON(c.App.Writer, records)
		}
		printHistory(c.App.Writer, records)
		return nil
	},
}

func printHistory(w io.Writer, records []history.Record) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FINISHED\tTITLE\tSTATUS\tTX\tERROR")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.FinishedAt.Local().Format(time.DateTime), r.Title, r.Status, r.TxHash, r.Error)
	}
	tw.Flush()
}

var commandWeather = &cli.Command{
	Name:  "weather",
	Usage: "query climalink-api for weather data",
	Subcommands: []*cli.Command{
		{
			Name:  "current",
			Usage: "current conditions",
			Flags: []cli.Flag{latFlag, lonFlag, jsonFlag},
			Action: func(c *cli.Context) error {
				api := newAPIClient(c.String(apiURLFlag.Name), 10*time.Second)
				cur, err := api.Current(c.Context, c.Float64(latFlag.Name), c.Float64(lonFlag.Name))
				if err != nil {
					return err
				}
				if c.Bool(jsonFlag.Name) {
					return writeJSON(c.App.Writer, cur)
				}
				fmt.Fprintf(c.App.Writer, "%s, %.1f°C, %.0f%% humidity (confidence %d%%)\n",
					cur.WeatherCondition, cur.Temperature, cur.Humidity, cur.Confidence)
				return nil
			},
		},
		{
			Name:  "forecast",
			Usage: "daily forecast",
			Flags: []cli.Flag{latFlag, lonFlag, jsonFlag},
			Action: func(c *cli.Context) error {
				api := newAPIClient(c.String(apiURLFlag.Name), 10*time.Second)
				fc, err := api.Forecast(c.Context, c.Float64(latFlag.Name), c.Float64(lonFlag.Name))
				if err != nil {
					return err
				}
				if c.Bool(jsonFlag.Name) {
					return writeJSON(c.App.Writer, fc)
				}
				tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
				for _, day := range fc.Forecast {
					fmt.Fprintf(tw, "%s\t%s\t%.1f°C\t%.0f%%\tconfidence %d%%\n",
						day.Timestamp.Local().Format(time.DateOnly), day.WeatherCondition,
						day.Temperature, day.Humidity, day.Confidence)
				}
				return tw.Flush()
			},
		},
	},
}

var commandWatch = &cli.Command{
	Name:  "watch",
	Usage: "stream eligibility updates of an account from climalink-api",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     accountFlag.Name,
			Usage:    accountFlag.Usage,
			Required: true,
		},
		jsonFlag,
	},
	Action: func(c *cli.Context) error {
		hex := c.String(accountFlag.Name)
		if !common.IsHexAddress(hex) {
			return fmt.Errorf("invalid account %q", hex)
		}
		api := newAPIClient(c.String(apiURLFlag.Name), 10*time.Second)
		asJSON := c.Bool(jsonFlag.Name)
		return api.Watch(c.Context, common.HexToAddress(hex), func(snap eligibility.Snapshot) {
			if asJSON {
				_ = json.NewEncoder(c.App.Writer).Encode(snap)
				return
			}
			fmt.Fprintf(c.App.Writer, "%s  role=%s staked=%s balance=%s canJoin=%t\n",
				snap.ResolvedAt.Local().Format(time.TimeOnly), snap.Role,
				snap.Eligibility.StakedAmount, snap.Eligibility.CurrentCLT, snap.Eligibility.CanJoin)
		})
	},
}
