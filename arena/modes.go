package arena

// ResourceState mirrors the Resource Wars ledger: three contested pools and
// running capture scores.
type ResourceState struct {
	Resources   map[string]int `json:"resources"`
	Scores      ScorePair      `json:"scores"`
	Round       int            `json:"round"`
	TotalRounds int            `json:"totalRounds"`
}

// NegotiationState tracks the offer ladder. Red sells, blue buys; walkaway
// prices stay hidden server-side and never appear here.
type NegotiationState struct {
	Round        int       `json:"round"`
	TotalRounds  int       `json:"totalRounds"`
	CurrentOffer *int      `json:"currentOffer,omitempty"`
	OfferBy      string    `json:"offerBy,omitempty"`
	DealPrice    *int      `json:"dealPrice,omitempty"`
	DealRound    *int      `json:"dealRound,omitempty"`
	Scores       ScorePair `json:"scores"`
	BluffsUsed   ScorePair `json:"bluffsUsed"`
}

// AuctionItem is the public view of a lot; per-agent valuations are hidden.
type AuctionItem struct {
	Name      string `json:"name"`
	BaseValue int    `json:"baseValue"`
}

// WonItem records a lot claimed at auction.
type WonItem struct {
	Name  string `json:"name"`
	Price int    `json:"price"`
	Value int    `json:"value,omitempty"`
}

// WonItemsPair lists claimed lots per side.
type WonItemsPair struct {
	Red  []WonItem `json:"red"`
	Blue []WonItem `json:"blue"`
}

// AuctionState tracks the sealed-bid auction ledger.
type AuctionState struct {
	Round          int          `json:"round"`
	TotalRounds    int          `json:"totalRounds"`
	Credits        ScorePair    `json:"credits"`
	Scores         ScorePair    `json:"scores"`
	TotalSpent     ScorePair    `json:"totalSpent"`
	CurrentItem    *AuctionItem `json:"currentItem,omitempty"`
	ItemsRemaining int          `json:"itemsRemaining"`
	WonItems       WonItemsPair `json:"wonItems"`
	BluffsUsed     ScorePair    `json:"bluffsUsed"`
}

// GPUListing is one GPU resource currently on the block.
type GPUListing struct {
	Name         string  `json:"name"`
	ComputeUnits int     `json:"computeUnits"`
	Price        int     `json:"price"`
	DemandLevel  float64 `json:"demandLevel"`
	SurgeActive  bool    `json:"surgeActive"`
}

// GPUMarketState tracks the GPU marketplace: red is the bidding user, blue
// the provider setting prices.
type GPUMarketState struct {
	Round           int            `json:"round"`
	TotalRounds     int            `json:"totalRounds"`
	UserBudget      int            `json:"userBudget"`
	UserSpent       int            `json:"userSpent"`
	ComputeAcquired int            `json:"computeAcquired"`
	Revenue         int            `json:"revenue"`
	Scores          ScorePair      `json:"scores"`
	GPUPrices       map[string]int `json:"gpuPrices,omitempty"`
	CurrentGPU      *GPUListing    `json:"currentGpu,omitempty"`
}

// ModeState is the tagged union of per-game-type state. Exactly one variant
// is non-nil once a match has started.
type ModeState struct {
	Resource    *ResourceState    `json:"resource,omitempty"`
	Negotiation *NegotiationState `json:"negotiation,omitempty"`
	Auction     *AuctionState     `json:"auction,omitempty"`
	GPUMarket   *GPUMarketState   `json:"gpuMarket,omitempty"`
}

// StateDelta is the flat wire projection of mode state carried by
// round_start/round_end/match_end events. Absent fields keep their prior
// snapshot values when merged.
type StateDelta struct {
	Round       *int `json:"round,omitempty"`
	TotalRounds *int `json:"totalRounds,omitempty"`

	Resources map[string]int `json:"resources,omitempty"`
	Scores    *ScorePair     `json:"scores,omitempty"`

	CurrentOffer *int       `json:"currentOffer,omitempty"`
	OfferBy      *string    `json:"offerBy,omitempty"`
	DealPrice    *int       `json:"dealPrice,omitempty"`
	DealRound    *int       `json:"dealRound,omitempty"`
	BluffsUsed   *ScorePair `json:"bluffsUsed,omitempty"`

	Credits        *ScorePair    `json:"credits,omitempty"`
	TotalSpent     *ScorePair    `json:"totalSpent,omitempty"`
	CurrentItem    *AuctionItem  `json:"currentItem,omitempty"`
	ItemsRemaining *int          `json:"itemsRemaining,omitempty"`
	WonItems       *WonItemsPair `json:"wonItems,omitempty"`

	UserBudget      *int           `json:"userBudget,omitempty"`
	UserSpent       *int           `json:"userSpent,omitempty"`
	ComputeAcquired *int           `json:"computeAcquired,omitempty"`
	Revenue         *int           `json:"revenue,omitempty"`
	GPUPrices       map[string]int `json:"gpuPrices,omitempty"`
	CurrentGPU      *GPUListing    `json:"currentGpu,omitempty"`
}

// newModeState allocates the variant matching the game type.
func newModeState(gt GameType, totalRounds int) ModeState {
	switch gt {
	case GameNegotiation:
		return ModeState{Negotiation: &NegotiationState{Round: 1, TotalRounds: totalRounds}}
	case GameAuction:
		return ModeState{Auction: &AuctionState{Round: 1, TotalRounds: totalRounds}}
	case GameGPUBidding:
		return ModeState{GPUMarket: &GPUMarketState{Round: 1, TotalRounds: totalRounds}}
	default:
		return ModeState{Resource: &ResourceState{Round: 1, TotalRounds: totalRounds}}
	}
}

// clone deep-copies the union so reducer outputs never alias prior snapshots.
func (m ModeState) clone() ModeState {
	var out ModeState
	if m.Resource != nil {
		rs := *m.Resource
		rs.Resources = cloneIntMap(m.Resource.Resources)
		out.Resource = &rs
	}
	if m.Negotiation != nil {
		ns := *m.Negotiation
		ns.CurrentOffer = cloneIntPtr(m.Negotiation.CurrentOffer)
		ns.DealPrice = cloneIntPtr(m.Negotiation.DealPrice)
		ns.DealRound = cloneIntPtr(m.Negotiation.DealRound)
		out.Negotiation = &ns
	}
	if m.Auction != nil {
		as := *m.Auction
		if m.Auction.CurrentItem != nil {
			item := *m.Auction.CurrentItem
			as.CurrentItem = &item
		}
		as.WonItems.Red = append([]WonItem(nil), m.Auction.WonItems.Red...)
		as.WonItems.Blue = append([]WonItem(nil), m.Auction.WonItems.Blue...)
		out.Auction = &as
	}
	if m.GPUMarket != nil {
		gs := *m.GPUMarket
		gs.GPUPrices = cloneIntMap(m.GPUMarket.GPUPrices)
		if m.GPUMarket.CurrentGPU != nil {
			gpu := *m.GPUMarket.CurrentGPU
			gs.CurrentGPU = &gpu
		}
		out.GPUMarket = &gs
	}
	return out
}

// merge folds a wire delta into the active variant. Unknown or nil deltas
// leave the state untouched.
func (m *ModeState) merge(d *StateDelta) {
	if d == nil {
		return
	}
	switch {
	case m.Resource != nil:
		m.Resource.merge(d)
	case m.Negotiation != nil:
		m.Negotiation.merge(d)
	case m.Auction != nil:
		m.Auction.merge(d)
	case m.GPUMarket != nil:
		m.GPUMarket.merge(d)
	}
}

// scores returns the running score pair of the active variant.
func (m ModeState) scores() ScorePair {
	switch {
	case m.Resource != nil:
		return m.Resource.Scores
	case m.Negotiation != nil:
		return m.Negotiation.Scores
	case m.Auction != nil:
		return m.Auction.Scores
	case m.GPUMarket != nil:
		return m.GPUMarket.Scores
	}
	return ScorePair{}
}

// setScores replaces the running score pair of the active variant.
func (m *ModeState) setScores(s ScorePair) {
	switch {
	case m.Resource != nil:
		m.Resource.Scores = s
	case m.Negotiation != nil:
		m.Negotiation.Scores = s
	case m.Auction != nil:
		m.Auction.Scores = s
	case m.GPUMarket != nil:
		m.GPUMarket.Scores = s
	}
}

func (s *ResourceState) merge(d *StateDelta) {
	if d.Round != nil {
		s.Round = *d.Round
	}
	if d.TotalRounds != nil {
		s.TotalRounds = *d.TotalRounds
	}
	if d.Resources != nil {
		s.Resources = cloneIntMap(d.Resources)
	}
	if d.Scores != nil {
		s.Scores = *d.Scores
	}
}

func (s *NegotiationState) merge(d *StateDelta) {
	if d.Round != nil {
		s.Round = *d.Round
	}
	if d.TotalRounds != nil {
		s.TotalRounds = *d.TotalRounds
	}
	if d.CurrentOffer != nil {
		s.CurrentOffer = cloneIntPtr(d.CurrentOffer)
	}
	if d.OfferBy != nil {
		s.OfferBy = *d.OfferBy
	}
	if d.DealPrice != nil {
		s.DealPrice = cloneIntPtr(d.DealPrice)
	}
	if d.DealRound != nil {
		s.DealRound = cloneIntPtr(d.DealRound)
	}
	if d.Scores != nil {
		s.Scores = *d.Scores
	}
	if d.BluffsUsed != nil {
		s.BluffsUsed = *d.BluffsUsed
	}
}

func (s *AuctionState) merge(d *StateDelta) {
	if d.Round != nil {
		s.Round = *d.Round
	}
	if d.TotalRounds != nil {
		s.TotalRounds = *d.TotalRounds
	}
	if d.Credits != nil {
		s.Credits = *d.Credits
	}
	if d.Scores != nil {
		s.Scores = *d.Scores
	}
	if d.TotalSpent != nil {
		s.TotalSpent = *d.TotalSpent
	}
	if d.CurrentItem != nil {
		item := *d.CurrentItem
		s.CurrentItem = &item
	}
	if d.ItemsRemaining != nil {
		s.ItemsRemaining = *d.ItemsRemaining
	}
	if d.WonItems != nil {
		s.WonItems.Red = append([]WonItem(nil), d.WonItems.Red...)
		s.WonItems.Blue = append([]WonItem(nil), d.WonItems.Blue...)
	}
	if d.BluffsUsed != nil {
		s.BluffsUsed = *d.BluffsUsed
	}
}

func (s *GPUMarketState) merge(d *StateDelta) {
	if d.Round != nil {
		s.Round = *d.Round
	}
	if d.TotalRounds != nil {
		s.TotalRounds = *d.TotalRounds
	}
	if d.UserBudget != nil {
		s.UserBudget = *d.UserBudget
	}
	if d.UserSpent != nil {
		s.UserSpent = *d.UserSpent
	}
	if d.ComputeAcquired != nil {
		s.ComputeAcquired = *d.ComputeAcquired
	}
	if d.Revenue != nil {
		s.Revenue = *d.Revenue
	}
	if d.Scores != nil {
		s.Scores = *d.Scores
	}
	if d.GPUPrices != nil {
		s.GPUPrices = cloneIntMap(d.GPUPrices)
	}
	if d.CurrentGPU != nil {
		gpu := *d.CurrentGPU
		s.CurrentGPU = &gpu
	}
}

func cloneIntMap(in map[string]int) map[string]int {
	if in == nil {
		return nil
	}
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneIntPtr(in *int) *int {
	if in == nil {
		return nil
	}
	v := *in
	return &v
}
