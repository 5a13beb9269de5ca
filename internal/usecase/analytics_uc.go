package usecase

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"brontie-core/internal/domain/model"
	"brontie-core/internal/domain/ports/repository"
)

// Compile-time check
var _ AnalyticsUseCase = (*analyticsUC)(nil)

// AnalyticsUseCase is the single parameterized aggregation engine behind every
// analytics view. Merchant scoping is a plain parameter (empty = all
// merchants); how the id was resolved (session vs. admin query) is the API
// layer's concern. All reads are snapshot-consistent at best; these are
// analytics views, not ledgers.
type AnalyticsUseCase interface {
	Funnel(ctx context.Context, merchantID string, r *model.DateRange) (*FunnelReport, error)
	FeeTotals(ctx context.Context, merchantID string, r *model.DateRange) (*FeeReport, error)
	ProductMix(ctx context.Context, merchantID string, r *model.DateRange) ([]ProductMixRow, error)
	RedemptionDelay(ctx context.Context, merchantID string, r *model.DateRange) (*RedemptionDelayReport, error)
	Viral(ctx context.Context, r *model.DateRange) (*ViralReport, error)
	MasterRevenue(ctx context.Context, r *model.DateRange) (*MasterRevenueReport, error)
}

type BucketTotal struct {
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

type FunnelReport struct {
	TotalSold     BucketTotal `json:"total_sold"`
	TotalRedeemed BucketTotal `json:"total_redeemed"`
	TotalRefunded BucketTotal `json:"total_refunded"`
	TotalExpired  BucketTotal `json:"total_expired"`
	// ConversionRate = redeemed / sold * 100, 0 when nothing was sold.
	ConversionRate float64 `json:"conversion_rate"`
}

type FeeReport struct {
	RedeemedCount   int             `json:"redeemed_count"`
	Gross           decimal.Decimal `json:"gross"`
	ProcessorFee    decimal.Decimal `json:"processor_fee"`
	PlatformFee     decimal.Decimal `json:"platform_fee"`
	NetToMerchant   decimal.Decimal `json:"net_to_merchant"`
	ProcessorFeePct float64         `json:"processor_fee_pct"`
	PlatformFeePct  float64         `json:"platform_fee_pct"`
	NetPct          float64         `json:"net_pct"`
}

type ProductMixRow struct {
	ProductKey      string          `json:"product_key"`
	Name            string          `json:"name"`
	Count           int             `json:"count"`
	Revenue         decimal.Decimal `json:"revenue"`
	AvgOrderValue   decimal.Decimal `json:"avg_order_value"`
	MarketSharePct  float64         `json:"market_share_pct"`
	RevenueSharePct float64         `json:"revenue_share_pct"`
}

type DelayHistogramBucket struct {
	Label    string          `json:"label"`
	Count    int             `json:"count"`
	AvgGross decimal.Decimal `json:"avg_gross"`
}

type RedemptionDelayReport struct {
	Count       int                    `json:"count"`
	MeanDays    float64                `json:"mean_days"`
	MinDays     float64                `json:"min_days"`
	MaxDays     float64                `json:"max_days"`
	Percentiles map[int]float64        `json:"percentiles"` // keys 25, 50, 75, 90
	Histogram   []DelayHistogramBucket `json:"histogram"`
}

type CohortRow struct {
	Period            string  `json:"period"` // "2024-03" for months, "2024-03-17" for days
	Recipients        int     `json:"recipients"`
	Converted         int     `json:"converted"`
	ConversionRatePct float64 `json:"conversion_rate_pct"`
}

type ViralReport struct {
	TotalRecipients     int         `json:"total_recipients"`
	ConvertedRecipients int         `json:"converted_recipients"`
	DistinctSenders     int         `json:"distinct_senders"`
	ConversionRatePct   float64     `json:"conversion_rate_pct"`
	ViralCoefficient    float64     `json:"viral_coefficient"`
	Cohorts             []CohortRow `json:"cohorts"`
	Timeline            []CohortRow `json:"timeline"`
}

// MerchantRevenueRow deliberately carries two gross numerators side by side:
// TotalGross covers every voucher regardless of fate (activity) while
// RedeemedGross and the fee columns cover realized, payable revenue only.
type MerchantRevenueRow struct {
	MerchantID    string          `json:"merchant_id"`
	MerchantName  string          `json:"merchant_name"`
	VoucherCount  int             `json:"voucher_count"`
	RedeemedCount int             `json:"redeemed_count"`
	TotalGross    decimal.Decimal `json:"total_gross"`
	RedeemedGross decimal.Decimal `json:"redeemed_gross"`
	ProcessorFee  decimal.Decimal `json:"processor_fee"`
	PlatformFee   decimal.Decimal `json:"platform_fee"`
	NetToMerchant decimal.Decimal `json:"net_to_merchant"`
}

type MasterRevenueReport struct {
	Merchants []MerchantRevenueRow `json:"merchants"`
	Overall   MerchantRevenueRow   `json:"overall"`
}

type analyticsUC struct {
	vouchers  repository.VoucherRepository
	giftItems repository.GiftItemRepository
	merchants repository.MerchantRepository

	log *zerolog.Logger
}

func NewAnalyticsUseCase(
	vouchers repository.VoucherRepository,
	giftItems repository.GiftItemRepository,
	merchants repository.MerchantRepository,
	logger *zerolog.Logger,
) *analyticsUC {
	return &analyticsUC{vouchers: vouchers, giftItems: giftItems, merchants: merchants, log: logger}
}

func (a *analyticsUC) Funnel(ctx context.Context, merchantID string, r *model.DateRange) (*FunnelReport, error) {
	vs, items, _, err := a.load(ctx, merchantID, r, false)
	if err != nil {
		return nil, err
	}

	var sold, redeemed, refunded, expired BucketTotal
	soldSum, redeemedSum, refundedSum, expiredSum := decimal.Decimal{}, decimal.Decimal{}, decimal.Decimal{}, decimal.Decimal{}
	for _, v := range vs {
		gross := v.EffectiveGross(items[v.GiftItemID])
		if v.SoldIn(r) {
			sold.Count++
			soldSum = soldSum.Add(gross)
		}
		switch v.EventBucket(r) {
		case model.BucketRedeemed:
			redeemed.Count++
			redeemedSum = redeemedSum.Add(gross)
		case model.BucketRefunded:
			refunded.Count++
			refundedSum = refundedSum.Add(gross)
		case model.BucketExpired:
			expired.Count++
			expiredSum = expiredSum.Add(gross)
		}
	}
	sold.Amount = soldSum.Round(2)
	redeemed.Amount = redeemedSum.Round(2)
	refunded.Amount = refundedSum.Round(2)
	expired.Amount = expiredSum.Round(2)

	return &FunnelReport{
		TotalSold:      sold,
		TotalRedeemed:  redeemed,
		TotalRefunded:  refunded,
		TotalExpired:   expired,
		ConversionRate: ratioPct(redeemed.Count, sold.Count),
	}, nil
}

func (a *analyticsUC) FeeTotals(ctx context.Context, merchantID string, r *model.DateRange) (*FeeReport, error) {
	vs, items, merchants, err := a.load(ctx, merchantID, r, true)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	count := 0
	gross, processor, platform, net := decimal.Decimal{}, decimal.Decimal{}, decimal.Decimal{}, decimal.Decimal{}
	for _, v := range vs {
		if v.EventBucket(r) != model.BucketRedeemed {
			continue
		}
		fees := model.ComputeFees(v.EffectiveGross(items[v.GiftItemID]), merchants[v.MerchantID], v.ProcessorFee, now)
		count++
		gross = gross.Add(fees.Gross)
		processor = processor.Add(fees.ProcessorFee)
		platform = platform.Add(fees.PlatformFee)
		net = net.Add(fees.NetToMerchant)
	}

	return &FeeReport{
		RedeemedCount:   count,
		Gross:           gross.Round(2),
		ProcessorFee:    processor.Round(2),
		PlatformFee:     platform.Round(2),
		NetToMerchant:   net.Round(2),
		ProcessorFeePct: sharePct(processor, gross),
		PlatformFeePct:  sharePct(platform, gross),
		NetPct:          sharePct(net, gross),
	}, nil
}

func (a *analyticsUC) ProductMix(ctx context.Context, merchantID string, r *model.DateRange) ([]ProductMixRow, error) {
	vs, items, _, err := a.load(ctx, merchantID, r, false)
	if err != nil {
		return nil, err
	}

	type group struct {
		name    string
		count   int
		revenue decimal.Decimal
	}
	groups := map[string]*group{}
	totalCount := 0
	totalRevenue := decimal.Decimal{}
	for _, v := range vs {
		if v.EventBucket(r) != model.BucketRedeemed {
			continue
		}
		item := items[v.GiftItemID]
		key, name := v.GiftItemID, ""
		if item != nil {
			key, name = item.ProductKey(), item.Name
		}
		g := groups[key]
		if g == nil {
			g = &group{name: name}
			groups[key] = g
		}
		gross := v.EffectiveGross(item)
		g.count++
		g.revenue = g.revenue.Add(gross)
		totalCount++
		totalRevenue = totalRevenue.Add(gross)
	}

	rows := make([]ProductMixRow, 0, len(groups))
	for key, g := range groups {
		aov := decimal.Decimal{}
		if g.count > 0 {
			aov = g.revenue.Div(decimal.NewFromInt(int64(g.count)))
		}
		rows = append(rows, ProductMixRow{
			ProductKey:      key,
			Name:            g.name,
			Count:           g.count,
			Revenue:         g.revenue.Round(2),
			AvgOrderValue:   aov.Round(2),
			MarketSharePct:  ratioPct(g.count, totalCount),
			RevenueSharePct: sharePct(g.revenue, totalRevenue),
		})
	}
	// Ties break on product key so output order is reproducible.
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].ProductKey < rows[j].ProductKey
	})
	return rows, nil
}

// delayBucketBoundsDays are the day boundaries of the redemption-delay
// histogram; the last bucket is open-ended.
var delayBucketBoundsDays = []float64{0, 1, 3, 7, 14, 30, 60, 90, 365}

func (a *analyticsUC) RedemptionDelay(ctx context.Context, merchantID string, r *model.DateRange) (*RedemptionDelayReport, error) {
	vs, items, _, err := a.load(ctx, merchantID, r, false)
	if err != nil {
		return nil, err
	}

	type sample struct {
		days  float64
		gross decimal.Decimal
	}
	var samples []sample
	for _, v := range vs {
		if v.EventBucket(r) != model.BucketRedeemed || v.IssuedAt == nil || v.RedeemedAt == nil {
			continue
		}
		days := v.RedeemedAt.Sub(*v.IssuedAt).Hours() / 24
		samples = append(samples, sample{days: days, gross: v.EffectiveGross(items[v.GiftItemID])})
	}

	report := &RedemptionDelayReport{
		Count:       len(samples),
		Percentiles: map[int]float64{25: 0, 50: 0, 75: 0, 90: 0},
		Histogram:   emptyDelayHistogram(),
	}
	if len(samples) == 0 {
		return report, nil
	}

	delays := make([]float64, len(samples))
	sum := 0.0
	for i, s := range samples {
		delays[i] = s.days
		sum += s.days
	}
	sort.Float64s(delays)
	report.MinDays = round2(delays[0])
	report.MaxDays = round2(delays[len(delays)-1])
	report.MeanDays = round2(sum / float64(len(delays)))
	for _, p := range []int{25, 50, 75, 90} {
		idx := int(math.Floor(float64(len(delays)) * float64(p) / 100))
		if idx >= len(delays) {
			idx = len(delays) - 1
		}
		report.Percentiles[p] = round2(delays[idx])
	}

	counts := make([]int, len(report.Histogram))
	sums := make([]decimal.Decimal, len(report.Histogram))
	for _, s := range samples {
		idx := delayBucketIndex(s.days)
		counts[idx]++
		sums[idx] = sums[idx].Add(s.gross)
	}
	for i := range report.Histogram {
		report.Histogram[i].Count = counts[i]
		if counts[i] > 0 {
			report.Histogram[i].AvgGross = sums[i].Div(decimal.NewFromInt(int64(counts[i]))).Round(2)
		}
	}
	return report, nil
}

func (a *analyticsUC) Viral(ctx context.Context, r *model.DateRange) (*ViralReport, error) {
	vs, _, _, err := a.load(ctx, "", r, false)
	if err != nil {
		return nil, err
	}

	recipients := map[string]*viralRecipient{}
	senders := map[string]struct{}{}
	for _, v := range vs {
		if v.SenderEmail != "" {
			senders[v.SenderEmail] = struct{}{}
		}
		if v.RecipientToken == "" {
			continue
		}
		rec := recipients[v.RecipientToken]
		if rec == nil {
			rec = &viralRecipient{first: v.CreatedAt}
			recipients[v.RecipientToken] = rec
		}
		if v.CreatedAt.Before(rec.first) {
			rec.first = v.CreatedAt
		}
		if v.RecipientBecameSender {
			rec.converted = true
		}
	}

	converted := 0
	for _, rec := range recipients {
		if rec.converted {
			converted++
		}
	}

	report := &ViralReport{
		TotalRecipients:     len(recipients),
		ConvertedRecipients: converted,
		DistinctSenders:     len(senders),
		ConversionRatePct:   ratioPct(converted, len(recipients)),
	}
	if len(senders) > 0 {
		report.ViralCoefficient = round2(float64(len(recipients)) / float64(len(senders)))
	}
	report.Cohorts = cohortRows(recipients, "2006-01")
	report.Timeline = cohortRows(recipients, "2006-01-02")
	return report, nil
}

func (a *analyticsUC) MasterRevenue(ctx context.Context, r *model.DateRange) (*MasterRevenueReport, error) {
	vs, items, merchants, err := a.load(ctx, "", r, true)
	if err != nil {
		return nil, err
	}

	type acc struct {
		row           MerchantRevenueRow
		totalGross    decimal.Decimal
		redeemedGross decimal.Decimal
		processor     decimal.Decimal
		platform      decimal.Decimal
		net           decimal.Decimal
	}
	now := time.Now()
	byMerchant := map[string]*acc{}
	overall := &acc{}

	add := func(dst *acc, gross decimal.Decimal, fees *model.FeeBreakdown) {
		dst.row.VoucherCount++
		dst.totalGross = dst.totalGross.Add(gross)
		if fees != nil {
			dst.row.RedeemedCount++
			dst.redeemedGross = dst.redeemedGross.Add(fees.Gross)
			dst.processor = dst.processor.Add(fees.ProcessorFee)
			dst.platform = dst.platform.Add(fees.PlatformFee)
			dst.net = dst.net.Add(fees.NetToMerchant)
		}
	}

	for _, v := range vs {
		if !v.SoldIn(r) {
			continue
		}
		m := byMerchant[v.MerchantID]
		if m == nil {
			m = &acc{row: MerchantRevenueRow{MerchantID: v.MerchantID}}
			if mm := merchants[v.MerchantID]; mm != nil {
				m.row.MerchantName = mm.Name
			}
			byMerchant[v.MerchantID] = m
		}
		gross := v.EffectiveGross(items[v.GiftItemID])
		var fees *model.FeeBreakdown
		if v.EventBucket(r) == model.BucketRedeemed {
			f := model.ComputeFees(gross, merchants[v.MerchantID], v.ProcessorFee, now)
			fees = &f
		}
		add(m, gross, fees)
		add(overall, gross, fees)
	}

	finish := func(src *acc) MerchantRevenueRow {
		row := src.row
		row.TotalGross = src.totalGross.Round(2)
		row.RedeemedGross = src.redeemedGross.Round(2)
		row.ProcessorFee = src.processor.Round(2)
		row.PlatformFee = src.platform.Round(2)
		row.NetToMerchant = src.net.Round(2)
		return row
	}

	rows := make([]MerchantRevenueRow, 0, len(byMerchant))
	for _, m := range byMerchant {
		rows = append(rows, finish(m))
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].TotalGross.Equal(rows[j].TotalGross) {
			return rows[i].TotalGross.GreaterThan(rows[j].TotalGross)
		}
		return rows[i].MerchantID < rows[j].MerchantID
	})

	return &MasterRevenueReport{Merchants: rows, Overall: finish(overall)}, nil
}

// load fetches the voucher population plus the gift-item index, and the
// merchant index when fee computation is needed.
func (a *analyticsUC) load(ctx context.Context, merchantID string, r *model.DateRange, withMerchants bool) ([]*model.Voucher, map[string]*model.GiftItem, map[string]*model.Merchant, error) {
	vs, err := a.vouchers.List(ctx, repository.NoTX, merchantID, r)
	if err != nil {
		return nil, nil, nil, err
	}
	items, err := a.giftItems.ListAll(ctx, repository.NoTX)
	if err != nil {
		return nil, nil, nil, err
	}
	itemIdx := make(map[string]*model.GiftItem, len(items))
	for _, it := range items {
		itemIdx[it.ID] = it
	}
	var merchantIdx map[string]*model.Merchant
	if withMerchants {
		ms, err := a.merchants.ListAll(ctx, repository.NoTX)
		if err != nil {
			return nil, nil, nil, err
		}
		merchantIdx = make(map[string]*model.Merchant, len(ms))
		for _, m := range ms {
			merchantIdx[m.ID] = m
		}
	}
	return vs, itemIdx, merchantIdx, nil
}

type viralRecipient struct {
	first     time.Time
	converted bool
}

func cohortRows(recipients map[string]*viralRecipient, layout string) []CohortRow {
	byPeriod := map[string]*CohortRow{}
	for _, rec := range recipients {
		period := rec.first.Format(layout)
		row := byPeriod[period]
		if row == nil {
			row = &CohortRow{Period: period}
			byPeriod[period] = row
		}
		row.Recipients++
		if rec.converted {
			row.Converted++
		}
	}
	rows := make([]CohortRow, 0, len(byPeriod))
	for _, row := range byPeriod {
		row.ConversionRatePct = ratioPct(row.Converted, row.Recipients)
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Period < rows[j].Period })
	return rows
}

func emptyDelayHistogram() []DelayHistogramBucket {
	labels := []string{"0-1", "1-3", "3-7", "7-14", "14-30", "30-60", "60-90", "90-365", "365+"}
	out := make([]DelayHistogramBucket, len(labels))
	for i, l := range labels {
		out[i] = DelayHistogramBucket{Label: l}
	}
	return out
}

func delayBucketIndex(days float64) int {
	for i := 1; i < len(delayBucketBoundsDays); i++ {
		if days < delayBucketBoundsDays[i] {
			return i - 1
		}
	}
	return len(delayBucketBoundsDays) - 1 // 365+
}

// ratioPct guards its denominator: a ratio over nothing is 0, never NaN.
func ratioPct(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return round2(float64(num) / float64(den) * 100)
}

func sharePct(num, den decimal.Decimal) float64 {
	if den.IsZero() {
		return 0
	}
	f, _ := num.Div(den).Mul(decimal.NewFromInt(100)).Round(2).Float64()
	return f
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
