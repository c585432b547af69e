package spot

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"blockwatch/internal/models"
	"blockwatch/internal/parser"
)

// Source records which fallback step produced the resolved prices.
type Source string

const (
	SourceTagInWindow     Source = "tag_in_window"
	SourceTagBeforeWindow Source = "tag_before_window"
	SourceRefFallback     Source = "ref_fallback"
	SourceMissing         Source = "missing"
)

// Sanity bands per asset. Extracted values outside the band are treated as
// extraction false-positives and discarded.
const (
	btcMin = 1_000
	btcMax = 200_000
	ethMin = 100
	ethMax = 10_000
)

type Prices struct {
	BTC             *float64
	ETH             *float64
	Source          Source
	SourceMessageID *int64
}

var (
	btcPriceRe = regexp.MustCompile(`(?i)\bBTC\b[^\n$]*\$\s*([\d.,]+[KMBkmb]?)`)
	ethPriceRe = regexp.MustCompile(`(?i)\bETH\b[^\n$]*\$\s*([\d.,]+[KMBkmb]?)`)
	refScanRe  = regexp.MustCompile(`(?i)(?:\*\*Ref\*\*|\bRef):\s*(\$?[\d.,]+[KMBkmb]?)`)
)

type Resolver struct {
	SpotTag string
	Logger  *zap.Logger
}

// Resolve picks the best-effort BTC/ETH reference prices. Priority, first
// hit wins: the latest tagged spot-price message inside the window, the
// latest tagged message before the window, the latest in-window Ref value
// with the asset inferred from the surrounding text, then missing.
// Both slices must be ordered by date ascending.
func (r *Resolver) Resolve(inWindow, beforeWindow []models.Message) Prices {
	if p, ok := r.fromTagged(inWindow, SourceTagInWindow); ok {
		return p
	}
	if p, ok := r.fromTagged(beforeWindow, SourceTagBeforeWindow); ok {
		return p
	}
	if p, ok := r.fromRefs(inWindow); ok {
		return p
	}
	if r.Logger != nil {
		r.Logger.Warn("spot prices unresolved for window",
			zap.Int("window_messages", len(inWindow)))
	}
	return Prices{Source: SourceMissing}
}

func (r *Resolver) fromTagged(messages []models.Message, src Source) (Prices, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]
		if r.SpotTag == "" || !strings.Contains(msg.Text, r.SpotTag) {
			continue
		}
		btc := extractPrice(btcPriceRe, msg.Text, btcMin, btcMax)
		eth := extractPrice(ethPriceRe, msg.Text, ethMin, ethMax)
		if btc == nil && eth == nil {
			continue
		}
		id := msg.MessageID
		return Prices{BTC: btc, ETH: eth, Source: src, SourceMessageID: &id}, true
	}
	return Prices{}, false
}

// fromRefs walks the window latest-first and takes Ref values until both
// assets are filled or the window is exhausted. The reported source message
// is the latest one that contributed a price.
func (r *Resolver) fromRefs(messages []models.Message) (Prices, bool) {
	p := Prices{Source: SourceRefFallback}
	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]
		m := refScanRe.FindStringSubmatch(msg.Text)
		if m == nil {
			continue
		}
		v, err := parser.ParseAmount(m[1])
		if err != nil {
			continue
		}
		switch inferAsset(msg.Text) {
		case parser.AssetBTC:
			if p.BTC == nil && v >= btcMin && v <= btcMax {
				p.BTC = &v
				if p.SourceMessageID == nil {
					id := msg.MessageID
					p.SourceMessageID = &id
				}
			}
		case parser.AssetETH:
			if p.ETH == nil && v >= ethMin && v <= ethMax {
				p.ETH = &v
				if p.SourceMessageID == nil {
					id := msg.MessageID
					p.SourceMessageID = &id
				}
			}
		}
		if p.BTC != nil && p.ETH != nil {
			break
		}
	}
	if p.BTC == nil && p.ETH == nil {
		return Prices{}, false
	}
	return p, true
}

func extractPrice(re *regexp.Regexp, text string, min, max float64) *float64 {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v, err := parser.ParseAmount(m[1])
	if err != nil || v < min || v > max {
		return nil
	}
	return &v
}

func inferAsset(text string) parser.Asset {
	upper := strings.ToUpper(text)
	btc := strings.Index(upper, "BTC")
	eth := strings.Index(upper, "ETH")
	switch {
	case btc < 0 && eth < 0:
		return parser.AssetUnknown
	case eth < 0, btc >= 0 && btc < eth:
		return parser.AssetBTC
	default:
		return parser.AssetETH
	}
}
