package market

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/capvalis/breakout/broker"
)

// ErrNoData is returned when no chunk yields any candles for the request.
var ErrNoData = errors.New("market: no candle data for range")

// chunkDays is the widest span the broker serves in a single history call.
const chunkDays = 100

const dateLayout = "2006-01-02"

// ExchangeLocation returns the exchange-local timezone used to stamp
// normalized candles. Falls back to a fixed IST offset when the tz
// database is unavailable.
func ExchangeLocation() *time.Location {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		return time.FixedZone("IST", 5*3600+1800)
	}
	return loc
}

// Fetcher normalizes broker history payloads into ordered, de-duplicated
// candle sequences in exchange-local time.
type Fetcher struct {
	provider broker.HistoryProvider
	loc      *time.Location
	log      zerolog.Logger
}

func NewFetcher(p broker.HistoryProvider, loc *time.Location, log zerolog.Logger) *Fetcher {
	if loc == nil {
		loc = ExchangeLocation()
	}
	return &Fetcher{
		provider: p,
		loc:      loc,
		log:      log.With().Str("component", "fetcher").Logger(),
	}
}

// FetchRange fetches candles for [start, end] at the given interval
// (minutes). Spans wider than 100 days are fetched in successive 100-day
// windows. A chunk whose fetch fails or reports a non-ok status is logged
// and dropped; the remaining chunks are still combined, so the result may
// be partial. Only a completely empty result is an error (ErrNoData).
func (f *Fetcher) FetchRange(ctx context.Context, symbol string, start, end time.Time, interval int) ([]Candle, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("market: end %s before start %s",
			end.Format(dateLayout), start.Format(dateLayout))
	}

	daysDiff := int(end.Sub(start).Hours() / 24)

	// Spans up to and including chunkDays fit in one request.
	numChunks := 1
	if daysDiff > chunkDays {
		numChunks = daysDiff/chunkDays + 1
	}

	if numChunks > 1 {
		f.log.Info().
			Int("days", daysDiff).
			Int("chunks", numChunks).
			Msg("date range exceeds chunk limit, fetching in windows")
	}

	var all []Candle

	for i := 0; i < numChunks; i++ {
		chunkStart := start.AddDate(0, 0, i*chunkDays)
		chunkEnd := chunkStart.AddDate(0, 0, chunkDays-1)
		if i == numChunks-1 {
			chunkEnd = end
		}

		req := broker.HistoryRequest{
			Symbol:   symbol,
			From:     chunkStart.Format(dateLayout),
			To:       chunkEnd.Format(dateLayout),
			Interval: interval,
		}

		resp, err := f.provider.GetHistory(ctx, req)
		if err != nil {
			f.log.Error().Err(err).
				Str("from", req.From).
				Str("to", req.To).
				Msgf("chunk %d/%d fetch failed", i+1, numChunks)
			continue
		}
		if resp.Status != broker.StatusOK {
			f.log.Error().
				Str("status", resp.Status).
				Str("message", resp.Message).
				Str("from", req.From).
				Str("to", req.To).
				Msgf("chunk %d/%d returned non-ok status", i+1, numChunks)
			continue
		}

		for _, row := range resp.Candles {
			all = append(all, Candle{
				Time:  time.Unix(row.Epoch, 0).In(f.loc),
				Open:  row.Open,
				High:  row.High,
				Low:   row.Low,
				Close: row.Close,
			})
		}

		f.log.Debug().
			Int("candles", len(resp.Candles)).
			Msgf("fetched chunk %d/%d", i+1, numChunks)
	}

	if len(all) == 0 {
		return nil, ErrNoData
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Time.Before(all[j].Time)
	})

	all = dedupeByTime(all)

	f.log.Info().Int("candles", len(all)).Msg("total candles fetched")

	return all, nil
}

// dedupeByTime removes rows sharing a timestamp, keeping the first
// occurrence. Input must be sorted by time.
func dedupeByTime(candles []Candle) []Candle {
	out := candles[:0]
	for _, c := range candles {
		if len(out) > 0 && out[len(out)-1].Time.Equal(c.Time) {
			continue
		}
		out = append(out, c)
	}
	return out
}
