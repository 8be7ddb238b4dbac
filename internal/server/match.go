package server

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/deckforge/deckforge/internal/core/ai"
	"github.com/deckforge/deckforge/internal/core/ecs"
	"github.com/deckforge/deckforge/internal/core/observability/log"
	"github.com/deckforge/deckforge/internal/core/protocol"
	"github.com/deckforge/deckforge/internal/game"
)

// MatchState is the lifecycle of one session.
type MatchState int32

const (
	StateNotStarted MatchState = iota
	StateRunning
	StateEnded
)

func (s MatchState) String() string {
	switch s {
	case StateNotStarted:
		return "NOT_STARTED"
	case StateRunning:
		return "RUNNING"
	case StateEnded:
		return "ENDED"
	default:
		return "UNKNOWN"
	}
}

// Match is one running game session. A single mutex is the serialization
// point for everything that touches the store: client requests, AI timers
// and lifecycle calls all funnel through it, so rulesets and observers never
// see concurrent access.
type Match struct {
	id    int64
	rules game.Ruleset
	log   log.Log
	onEnd func(*Match)

	mu         sync.Mutex
	state      MatchState
	store      *ecs.Store
	players    []ClientIO
	seats      []*ecs.Entity
	timers     map[int]*time.Timer
	lastActive time.Time
}

func newMatch(id int64, store *ecs.Store, rules game.Ruleset, logger log.Log, onEnd func(*Match)) *Match {
	return &Match{
		id:     id,
		rules:  rules,
		log:    logger.With(log.Int64("game", id), log.String("mod", rules.Name())),
		onEnd:  onEnd,
		state:  StateNotStarted,
		store:  store,
		timers: make(map[int]*time.Timer),
	}
}

func (m *Match) ID() int64 { return m.id }

func (m *Match) State() MatchState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Match) LastActive() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastActive
}

// HasPlayer reports whether the client holds a seat in this match.
func (m *Match) HasPlayer(c ClientIO) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seatOfLocked(c) != nil
}

// Start seats the players, runs ruleset setup, attaches the broadcast
// observers and pushes the initial state snapshot to every seat. Starting
// anything but a fresh session is a caller bug.
func (m *Match) Start(players []ClientIO) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateNotStarted {
		return errors.Wrapf(ErrIllegalState, "start in state %s", m.state)
	}

	m.players = append([]ClientIO(nil), players...)
	for seat, c := range m.players {
		e := m.store.CreateEntity().Attach(&ecs.PlayerComponent{Index: seat, Name: c.Name()})
		if agent, ok := c.(*AgentClient); ok {
			e.Attach(&ai.ControlledComponent{Strategy: agent.Strategy(), Delay: agent.Delay()})
		}
		m.seats = append(m.seats, e)
	}

	// Nothing goes out before setup succeeds: a failed setup must leave the
	// clients unaware a match was ever attempted.
	if err := m.rules.Setup(m.store, m.seats); err != nil {
		m.players, m.seats = nil, nil
		return errors.Wrap(err, "ruleset setup")
	}

	for seat, c := range m.players {
		m.sendTo(c, &protocol.NewGame{GameID: m.id, PlayerIndex: seat})
	}

	// Observers attach after setup so deck construction does not spam the
	// clients; the initial state goes out as one snapshot instead.
	m.store.Events().SubscribePost(ecs.EventZoneChange, m.onZoneChange)
	m.store.Events().SubscribePost(ecs.EventAttributeChange, m.onAttributeChange)

	m.state = StateRunning
	m.lastActive = time.Now()
	m.log.Info("match started", log.Int("players", len(m.players)))

	for seat := range m.players {
		m.syncStateLocked(seat)
	}
	m.offerActionsLocked()
	m.scheduleAgentsLocked()
	return nil
}

// End terminates a running match: GameOver goes out to every seat, pending
// AI timers are cancelled and the session is handed back to the router.
func (m *Match) End() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateRunning {
		return errors.Wrapf(ErrIllegalState, "end in state %s", m.state)
	}
	m.finishLocked()
	return nil
}

func (m *Match) finishLocked() {
	m.state = StateEnded
	m.lastActive = time.Now()
	for seat, t := range m.timers {
		t.Stop()
		delete(m.timers, seat)
	}
	if err := m.store.Events().Execute(ecs.GameOverEvent{}, nil); err != nil {
		m.log.Warn("game over observer failed", log.Error(err))
	}
	m.broadcastLocked(&protocol.GameOver{})
	m.log.Info("match ended")
	if m.onEnd != nil {
		m.onEnd(m)
	}
}

// HandleUseAbility validates and applies one client action. Validation
// failures reject the request with the state untouched; an action offered
// for a previous state simply fails its predicates here.
func (m *Match) HandleUseAbility(c ClientIO, msg *protocol.UseAbility) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateRunning {
		return errors.Wrapf(ErrInvalidState, "use in state %s", m.state)
	}
	seat := m.seatOfLocked(c)
	if seat == nil {
		return errors.Wrapf(ErrNotInMatch, "user %d", c.ID())
	}

	action, err := m.findActionLocked(seat, msg.ID, msg.Action)
	if err != nil {
		return err
	}
	targets, err := m.resolveTargetsLocked(msg.Targets)
	if err != nil {
		return err
	}
	if err := ecs.ResolveAction(action, targets); err != nil {
		return err
	}

	m.afterActionLocked(action)
	return nil
}

// HandleRequestTargets answers with the currently eligible targets of an
// offered action. The answer goes to the requester only.
func (m *Match) HandleRequestTargets(c ClientIO, msg *protocol.RequestTargets) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateRunning {
		return errors.Wrapf(ErrInvalidState, "target request in state %s", m.state)
	}
	seat := m.seatOfLocked(c)
	if seat == nil {
		return errors.Wrapf(ErrNotInMatch, "user %d", c.ID())
	}

	action, err := m.findActionLocked(seat, msg.ID, msg.Action)
	if err != nil {
		return err
	}

	reply := &protocol.AvailableTargets{
		GameID: m.id,
		ID:     msg.ID,
		Action: msg.Action,
	}
	if len(action.Targets) > 0 {
		reply.Min = action.Targets[0].Min
		reply.Max = action.Targets[0].Max
		for _, t := range action.EligibleTargets(0) {
			reply.Targets = append(reply.Targets, int(t.ID()))
		}
	}
	m.sendTo(c, reply)
	return nil
}

// findActionLocked resolves a client's (entity, action) reference to an
// action the seat controls. Unknown entities, unknown action names and
// actions controlled by another seat all reject the same way.
func (m *Match) findActionLocked(seat *ecs.Entity, entityID int, name string) (*ecs.Action, error) {
	e, err := m.store.Entity(ecs.EntityID(entityID))
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidAction, "entity %d", entityID)
	}
	action, ok := ecs.FindAction(e, name)
	if !ok {
		return nil, errors.Wrapf(ErrInvalidAction, "entity %d has no action %q", entityID, name)
	}
	if action.Controller != seat {
		return nil, errors.Wrapf(ErrInvalidAction, "%q on entity %d is not controlled by this seat", name, entityID)
	}
	return action, nil
}

func (m *Match) resolveTargetsLocked(ids []int) ([]*ecs.Entity, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	targets := make([]*ecs.Entity, 0, len(ids))
	for _, id := range ids {
		e, err := m.store.Entity(ecs.EntityID(id))
		if err != nil {
			return nil, errors.Wrapf(ecs.ErrInvalidTargets, "entity %d does not exist", id)
		}
		targets = append(targets, e)
	}
	return targets, nil
}

// afterActionLocked runs the post-action protocol: ask the ruleset whether
// the match is decided, otherwise re-offer actions and reschedule agents.
func (m *Match) afterActionLocked(action *ecs.Action) {
	m.lastActive = time.Now()
	if m.rules.OnActionResolved(m.store, action) {
		m.finishLocked()
		return
	}
	m.offerActionsLocked()
	m.scheduleAgentsLocked()
}

// seatOfLocked maps a client to its player entity, nil for spectators.
func (m *Match) seatOfLocked(c ClientIO) *ecs.Entity {
	for seat, p := range m.players {
		if p.ID() == c.ID() {
			return m.seats[seat]
		}
	}
	return nil
}

func (m *Match) seatIndexOf(e *ecs.Entity) int {
	for i, s := range m.seats {
		if s == e {
			return i
		}
	}
	return -1
}

// broadcastLocked delivers one message to every seat in seat order. Offline
// players are skipped; the match continues without them.
func (m *Match) broadcastLocked(msg protocol.Message) {
	for _, c := range m.players {
		m.sendTo(c, msg)
	}
}

func (m *Match) sendTo(c ClientIO, msg protocol.Message) {
	if err := c.Send(msg); err != nil {
		m.log.Debug("send failed",
			log.Int64("user", c.ID()),
			log.String("kind", string(msg.MessageKind())),
			log.Error(err))
	}
}

// onZoneChange mirrors a completed zone move to every seat and reveals the
// moved card to seats allowed to see the destination.
func (m *Match) onZoneChange(e ecs.Event) error {
	zc, ok := e.(ecs.ZoneChangeEvent)
	if !ok {
		return nil
	}
	m.broadcastLocked(&protocol.ZoneChange{
		Entity:      int(zc.Card.ID()),
		Source:      int(zc.Source.ID()),
		Destination: int(zc.Destination.ID()),
	})
	for seat := range m.players {
		if m.canSeeLocked(seat, zc.Destination) {
			m.sendTo(m.players[seat], m.cardInfoLocked(zc.Card, zc.Destination))
		}
	}
	return nil
}

// onAttributeChange mirrors a completed attribute change to every seat.
func (m *Match) onAttributeChange(e ecs.Event) error {
	ac, ok := e.(ecs.AttributeChangeEvent)
	if !ok {
		return nil
	}
	m.broadcastLocked(&protocol.Update{
		ID:    int(ac.Target.ID()),
		Key:   ac.Key,
		Value: ac.To,
	})
	return nil
}

// syncStateLocked pushes the full visible state to one seat: every player,
// every zone, and the contents of the zones that seat may see. Hidden zones
// expose their size only.
func (m *Match) syncStateLocked(seat int) {
	c := m.players[seat]
	for _, p := range m.seats {
		pc, _ := ecs.Get[*ecs.PlayerComponent](p, ecs.ComponentPlayer)
		m.sendTo(c, &protocol.Player{
			ID:         int(p.ID()),
			Index:      pc.Index,
			Name:       pc.Name,
			Properties: m.attributesOf(p),
		})
	}
	for _, ze := range m.store.EntitiesWith(ecs.ComponentZone) {
		zone, _ := ecs.Get[*ecs.ZoneComponent](ze, ecs.ComponentZone)
		owner := 0
		if zone.Owner != nil {
			owner = int(zone.Owner.ID())
		}
		m.sendTo(c, &protocol.Zone{
			ID:    int(ze.ID()),
			Name:  zone.Name,
			Owner: owner,
			Size:  zone.Size(),
			Known: zone.Known,
		})
		if !m.canSeeLocked(seat, ze) {
			continue
		}
		for _, card := range zone.Cards() {
			m.sendTo(c, m.cardInfoLocked(card, ze))
		}
	}
}

// canSeeLocked decides card-level visibility of a zone for a seat: public
// zones and the seat's own zones are visible, everything else is size-only.
func (m *Match) canSeeLocked(seat int, zoneEntity *ecs.Entity) bool {
	zone, ok := ecs.Get[*ecs.ZoneComponent](zoneEntity, ecs.ComponentZone)
	if !ok {
		return false
	}
	if zone.Known {
		return true
	}
	return zone.Owner == m.seats[seat]
}

func (m *Match) cardInfoLocked(card, zoneEntity *ecs.Entity) *protocol.CardInfo {
	name := ""
	if cc, ok := ecs.Get[*ecs.CardComponent](card, ecs.ComponentCard); ok {
		name = cc.Name
	}
	return &protocol.CardInfo{
		ID:         int(card.ID()),
		Zone:       int(zoneEntity.ID()),
		Name:       name,
		Properties: m.attributesOf(card),
	}
}

func (m *Match) attributesOf(e *ecs.Entity) map[string]int {
	attrs, ok := ecs.Get[*ecs.AttributesComponent](e, ecs.ComponentAttributes)
	if !ok {
		return map[string]int{}
	}
	return attrs.Values()
}

// offerActionsLocked recomputes the legal actions of every seat and pushes
// them out, prefixed by a reset so clients drop stale offers.
func (m *Match) offerActionsLocked() {
	for seat, c := range m.players {
		m.sendTo(c, &protocol.ResetActions{})
		for _, owner := range m.store.EntitiesWith(ecs.ComponentActions) {
			for _, a := range ecs.LegalActions(owner) {
				if a.Controller != m.seats[seat] {
					continue
				}
				m.sendTo(c, &protocol.UseableAction{
					ID:             int(owner.ID()),
					Action:         a.Name,
					TargetRequired: a.TargetRequired(),
				})
			}
		}
	}
}

// scheduleAgentsLocked arms a think timer for every AI-controlled seat that
// does not already have one pending. The timer fires outside the lock and
// re-enters through agentAct, so a long delay never blocks client requests.
func (m *Match) scheduleAgentsLocked() {
	for seat, e := range m.seats {
		ctrl, ok := ecs.Get[*ai.ControlledComponent](e, ai.ComponentAI)
		if !ok {
			continue
		}
		if _, pending := m.timers[seat]; pending {
			continue
		}
		seat := seat
		m.timers[seat] = time.AfterFunc(ctrl.Delay, func() {
			m.agentAct(seat)
		})
	}
}

// agentAct is the timer callback for one AI seat: under the match lock, ask
// the strategy for a decision and resolve it through the same path a client
// message takes.
func (m *Match) agentAct(seat int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.timers, seat)
	if m.state != StateRunning {
		return
	}
	ctrl, ok := ecs.Get[*ai.ControlledComponent](m.seats[seat], ai.ComponentAI)
	if !ok {
		return
	}

	decision, err := ctrl.Strategy.Act(m.seats[seat])
	if err != nil {
		m.log.Error("agent strategy failed", log.Int("seat", seat), log.Error(err))
		return
	}
	if decision == nil {
		// Not this seat's move. The next resolved action reschedules it.
		return
	}
	if err := ecs.ResolveAction(decision.Action, decision.Targets); err != nil {
		m.log.Warn("agent picked a rejected action",
			log.Int("seat", seat),
			log.String("action", decision.Action.Name),
			log.Error(err))
		return
	}
	m.afterActionLocked(decision.Action)
}
