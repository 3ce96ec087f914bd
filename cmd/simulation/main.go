package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/Imellstorm/wptest/internal/bidding"
	"github.com/Imellstorm/wptest/internal/inventory"
	"github.com/Imellstorm/wptest/internal/rpc"
	"github.com/Imellstorm/wptest/internal/settlement"
	"github.com/Imellstorm/wptest/internal/types"
)

const (
	transportHTTP = "http"
	transportGRPC = "grpc"
)

var opts struct {
	serverAddress string
	grpcAddress   string
	transport     string
	participants  int
	workers       int
	jwt           bool
	seed          int64
}

func init() {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// routeStats tracks latency for one operation. Workers record concurrently.
type routeStats struct {
	name string

	mu         sync.Mutex
	durations  []time.Duration
	totalCalls int
	failures   int
}

func (rs *routeStats) record(start time.Time, err error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.durations = append(rs.durations, time.Since(start))
	rs.totalCalls++
	if err != nil {
		rs.failures++
	}
}

// calculate returns min, max, mean, median, p95 and p99
func (rs *routeStats) calculate() (min, max, mean, median, p95, p99 time.Duration) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if len(rs.durations) == 0 {
		return 0, 0, 0, 0, 0, 0
	}

	sort.Slice(rs.durations, func(i, j int) bool {
		return rs.durations[i] < rs.durations[j]
	})

	min = rs.durations[0]
	max = rs.durations[len(rs.durations)-1]

	var sum time.Duration
	for _, d := range rs.durations {
		sum += d
	}
	mean = sum / time.Duration(len(rs.durations))
	median = rs.durations[len(rs.durations)/2]

	p95idx := int(math.Ceil(float64(len(rs.durations))*0.95)) - 1
	p99idx := int(math.Ceil(float64(len(rs.durations))*0.99)) - 1
	p95 = rs.durations[p95idx]
	p99 = rs.durations[p99idx]
	return
}

// barter is the part of the API a round needs. Registration always goes
// over HTTP; the rest can go over either transport.
type barter interface {
	Generate(ctx context.Context, name string) (*inventory.Inventory, error)
	PlaceBid(ctx context.Context, name string, rawLines []byte) (*bidding.Bid, error)
	Settle(ctx context.Context, bidder, counterparty string, rawLines []byte) (*settlement.Result, error)
}

// simulation runs one barter round and keeps per-operation stats
type simulation struct {
	http   *httpClient
	api    barter
	stats  map[string]*routeStats
	order  []string
	rngMu  sync.Mutex
	rng    *rand.Rand
	prefix string
}

func newSimulation() (*simulation, func(), error) {
	s := &simulation{
		http:   newHTTPClient(opts.serverAddress),
		rng:    rand.New(rand.NewSource(opts.seed)),
		prefix: uuid.New().String()[:8],
		order:  []string{"register", "token", "generate", "bid", "settle"},
		stats: map[string]*routeStats{
			"register": {name: "Register"},
			"token":    {name: "Token"},
			"generate": {name: "Generate"},
			"bid":      {name: "Place Bid"},
			"settle":   {name: "Settle Trade"},
		},
	}

	switch opts.transport {
	case transportHTTP:
		s.api = s.http
		return s, func() {}, nil
	case transportGRPC:
		conn, err := grpc.NewClient(opts.grpcAddress, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return nil, nil, fmt.Errorf("dial %s: %w", opts.grpcAddress, err)
		}
		s.api = rpc.NewClient(conn)
		return s, func() { conn.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown transport %q", opts.transport)
	}
}

func (s *simulation) intn(n int) int {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Intn(n)
}

// islander holds what the round learns about one participant
type islander struct {
	name      string
	inventory *inventory.Inventory
	bid       *bidding.Bid
}

// register creates the participants and their starting inventories
func (s *simulation) register(ctx context.Context) ([]*islander, error) {
	islanders := make([]*islander, opts.participants)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers)

	for i := range islanders {
		i := i
		g.Go(func() error {
			name := fmt.Sprintf("%s-islander-%03d", s.prefix, i)

			start := time.Now()
			err := s.http.CreateParticipant(ctx, name)
			s.stats["register"].record(start, err)
			if err != nil {
				return fmt.Errorf("register %s: %w", name, err)
			}

			if opts.jwt {
				start = time.Now()
				err = s.http.Authenticate(ctx, name)
				s.stats["token"].record(start, err)
				if err != nil {
					return fmt.Errorf("token for %s: %w", name, err)
				}
			}

			start = time.Now()
			inv, err := s.api.Generate(ctx, name)
			s.stats["generate"].record(start, err)
			if err != nil {
				return fmt.Errorf("generate %s: %w", name, err)
			}

			islanders[i] = &islander{name: name, inventory: inv}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return islanders, nil
}

// pickBid asks for a random part of the holding
func (s *simulation) pickBid(inv *inventory.Inventory) []types.RequestedLine {
	var lines []types.RequestedLine
	for _, line := range inv.Lines {
		if n := s.intn(line.Count + 1); n > 0 {
			lines = append(lines, types.RequestedLine{Name: line.Name, Count: n})
		}
	}
	if len(lines) == 0 && len(inv.Lines) > 0 {
		lines = append(lines, types.RequestedLine{Name: inv.Lines[0].Name, Count: 1})
	}
	return lines
}

// pickOffer greedily gathers at least value worth from inv, most valuable
// kinds first. It reports false when inv is not worth enough.
func pickOffer(inv *inventory.Inventory, value int) ([]types.RequestedLine, bool) {
	held := make([]inventory.Line, len(inv.Lines))
	copy(held, inv.Lines)
	sort.SliceStable(held, func(i, j int) bool {
		return held[i].UnitPrice > held[j].UnitPrice
	})

	var lines []types.RequestedLine
	total := 0
	for _, line := range held {
		if total >= value {
			break
		}
		n := (value - total + line.UnitPrice - 1) / line.UnitPrice
		if n > line.Count {
			n = line.Count
		}
		lines = append(lines, types.RequestedLine{Name: line.Name, Count: n})
		total += n * line.UnitPrice
	}
	return lines, total >= value
}

// placeBids has the first half of the islanders bid; the rest stay free to
// act as counterparties
func (s *simulation) placeBids(ctx context.Context, bidders []*islander) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers)

	for _, b := range bidders {
		b := b
		g.Go(func() error {
			raw, err := marshalLines(s.pickBid(b.inventory))
			if err != nil {
				return err
			}

			start := time.Now()
			bid, err := s.api.PlaceBid(ctx, b.name, raw)
			s.stats["bid"].record(start, err)
			if err != nil {
				log.Warn().Err(err).Str("participant", b.name).Msg("bid rejected")
				return nil
			}
			b.bid = bid
			return nil
		})
	}
	return g.Wait()
}

type roundTotals struct {
	mu        sync.Mutex
	settled   int
	rejected  int
	skipped   int
	value     int
	rejection map[string]int
}

func (t *roundTotals) add(result *settlement.Result, err error, skipped bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case skipped:
		t.skipped++
	case err != nil:
		t.rejected++
		kind, ok := types.KindOf(err)
		if !ok {
			kind = "TRANSPORT"
		}
		t.rejection[string(kind)]++
	default:
		t.settled++
		t.value += result.TotalValue
	}
}

// settle pairs each bidder holding a bid with a counterparty, which offers
// enough lines to cover the bid's value
func (s *simulation) settle(ctx context.Context, bidders, counterparties []*islander) (*roundTotals, error) {
	totals := &roundTotals{rejection: map[string]int{}}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers)

	for i, b := range bidders {
		if b.bid == nil {
			continue
		}
		b, c := b, counterparties[i%len(counterparties)]
		g.Go(func() error {
			offer, ok := pickOffer(c.inventory, b.bid.TotalValue)
			if !ok {
				totals.add(nil, nil, true)
				return nil
			}
			raw, err := marshalLines(offer)
			if err != nil {
				return err
			}

			start := time.Now()
			result, err := s.api.Settle(ctx, b.name, c.name, raw)
			s.stats["settle"].record(start, err)
			totals.add(result, err, false)
			if err == nil {
				log.Debug().
					Str("settlement_id", result.SettlementID).
					Str("bidder", b.name).
					Str("counterparty", c.name).
					Int("value", result.TotalValue).
					Msg("trade settled")
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return totals, nil
}

func (s *simulation) printPerformanceStats() {
	fmt.Printf("\nPerformance (%s)\n", opts.transport)
	fmt.Printf("%-15s %8s %8s %10s %10s %10s %10s %10s %10s\n",
		"Operation", "Calls", "Fails", "Min", "Max", "Mean", "Median", "P95", "P99")
	fmt.Println(strings.Repeat("-", 99))

	for _, key := range s.order {
		stats := s.stats[key]
		if stats.totalCalls == 0 {
			continue
		}
		min, max, mean, median, p95, p99 := stats.calculate()
		fmt.Printf("%-15s %8d %8d %10s %10s %10s %10s %10s %10s\n",
			stats.name, stats.totalCalls, stats.failures,
			min.Round(time.Microsecond), max.Round(time.Microsecond),
			mean.Round(time.Microsecond), median.Round(time.Microsecond),
			p95.Round(time.Microsecond), p99.Round(time.Microsecond))
	}
}

func runSimulation(ctx context.Context) error {
	if opts.participants < 2 {
		return fmt.Errorf("need at least 2 participants, got %d", opts.participants)
	}
	if opts.workers < 1 {
		opts.workers = 1
	}

	sim, closeConn, err := newSimulation()
	if err != nil {
		return err
	}
	defer closeConn()

	startTime := time.Now()
	log.Info().
		Int("participants", opts.participants).
		Int("workers", opts.workers).
		Str("transport", opts.transport).
		Msg("Starting barter round")

	islanders, err := sim.register(ctx)
	if err != nil {
		return err
	}

	startValue := 0
	for _, isl := range islanders {
		startValue += isl.inventory.TotalValue
	}

	half := len(islanders) / 2
	bidders, counterparties := islanders[:half], islanders[half:]
	if err := sim.placeBids(ctx, bidders); err != nil {
		return err
	}

	totals, err := sim.settle(ctx, bidders, counterparties)
	if err != nil {
		return err
	}

	fmt.Printf(`
Barter Round Summary
====================
Participants:      %d
Starting value:    %d
Trades settled:    %d
Trades rejected:   %d
Offers skipped:    %d
Value traded:      %d
Duration:          %s
`, len(islanders), startValue, totals.settled, totals.rejected, totals.skipped,
		totals.value, time.Since(startTime).Round(time.Millisecond))

	if len(totals.rejection) > 0 {
		fmt.Println("\nRejections")
		for kind, count := range totals.rejection {
			fmt.Printf("%-25s %d\n", kind, count)
		}
	}

	sim.printPerformanceStats()
	return nil
}

var rootCmd = &cobra.Command{
	Use:          "simulation",
	Short:        "Runs a barter round against a running island server",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSimulation(cmd.Context())
	},
}

func main() {
	flags := rootCmd.Flags()
	flags.StringVar(&opts.serverAddress, "addr", "http://localhost:8080", "HTTP base URL")
	flags.StringVar(&opts.grpcAddress, "grpc-addr", "localhost:9090", "gRPC address")
	flags.StringVar(&opts.transport, "transport", transportHTTP, "transport for trading calls: http or grpc")
	flags.IntVarP(&opts.participants, "participants", "n", 20, "number of participants")
	flags.IntVarP(&opts.workers, "workers", "w", 5, "concurrent workers")
	flags.BoolVar(&opts.jwt, "jwt", false, "fetch a token per participant (server in jwt auth mode)")
	flags.Int64Var(&opts.seed, "seed", time.Now().UnixNano(), "random seed for bids")

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Error().Err(err).Msg("Simulation failed")
		os.Exit(1)
	}
}
