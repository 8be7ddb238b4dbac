package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deckforge/deckforge/internal/core/ai"
	"github.com/deckforge/deckforge/internal/core/protocol"
	"github.com/deckforge/deckforge/internal/game"
	"github.com/deckforge/deckforge/internal/game/duel"
)

func testServer(t *testing.T, profiles ...ai.Profile) *Server {
	t.Helper()
	mods := game.NewRegistry()
	duel.Register(mods)
	return NewServer(DefaultConfig(), testLogger(), mods, profiles)
}

// connect registers a fake endpoint the way Accept registers a remote one
// and logs it in.
func connect(t *testing.T, s *Server, id int64, name string) *fakeClient {
	t.Helper()
	c := newFakeClient(id, "")
	s.clients.Put(c)
	s.Handle(c, &protocol.Login{Username: name})
	return c
}

func welcomeOf(t *testing.T, c *fakeClient) *protocol.Welcome {
	t.Helper()
	for _, m := range c.messages() {
		if w, ok := m.(*protocol.Welcome); ok {
			return w
		}
	}
	t.Fatal("no welcome received")
	return nil
}

func TestLoginWelcomesAndListsMods(t *testing.T) {
	s := testServer(t)
	c := connect(t, s, 100, "alice")

	w := welcomeOf(t, c)
	assert.Equal(t, protocol.WelcomeOK, w.Status)
	assert.Equal(t, c.ID(), w.UserID)

	var mods *protocol.AvailableMods
	for _, m := range c.messages() {
		if am, ok := m.(*protocol.AvailableMods); ok {
			mods = am
		}
	}
	require.NotNil(t, mods)
	assert.Equal(t, []string{duel.ModName}, mods.Mods)
}

func TestLoginWithEmptyUsernameIsDenied(t *testing.T) {
	s := testServer(t)
	c := newFakeClient(100, "")
	s.clients.Put(c)
	s.Handle(c, &protocol.Login{})

	w := welcomeOf(t, c)
	assert.Equal(t, protocol.WelcomeDenied, w.Status)
	assert.Empty(t, c.Name())
}

func TestLoginAnnouncesPresenceToOthers(t *testing.T) {
	s := testServer(t)
	alice := connect(t, s, 100, "alice")
	_ = connect(t, s, 101, "bob")

	var status *protocol.UserStatus
	for _, m := range alice.messages() {
		if us, ok := m.(*protocol.UserStatus); ok {
			status = us
		}
	}
	require.NotNil(t, status, "existing users hear about new logins")
	assert.Equal(t, int64(101), status.UserID)
	assert.Equal(t, protocol.StatusOnline, status.Status)
}

func TestRequestsBeforeLoginAreRejected(t *testing.T) {
	s := testServer(t)
	c := newFakeClient(100, "")
	s.clients.Put(c)

	s.Handle(c, &protocol.StartGame{Opponent: protocol.AnyOpponent, Mod: duel.ModName})
	require.Len(t, c.kinds(protocol.KindError), 1)
	assert.Equal(t, 0, s.GetStats().ActiveGames)
}

func TestMatchmakingPairsTwoWaitingClients(t *testing.T) {
	s := testServer(t)
	alice := connect(t, s, 100, "alice")
	bob := connect(t, s, 101, "bob")

	s.Handle(alice, &protocol.StartGame{Opponent: protocol.AnyOpponent, Mod: duel.ModName})
	assert.Len(t, alice.kinds(protocol.KindWait), 1)
	assert.Equal(t, 0, s.GetStats().ActiveGames)

	s.Handle(bob, &protocol.StartGame{Opponent: protocol.AnyOpponent, Mod: duel.ModName})
	assert.Equal(t, 1, s.GetStats().ActiveGames)

	var seats []int
	for _, c := range []*fakeClient{alice, bob} {
		for _, m := range c.messages() {
			if ng, ok := m.(*protocol.NewGame); ok {
				seats = append(seats, ng.PlayerIndex)
			}
		}
	}
	assert.ElementsMatch(t, []int{0, 1}, seats)
}

func TestMatchmakingIgnoresOwnQueueEntry(t *testing.T) {
	s := testServer(t)
	alice := connect(t, s, 100, "alice")

	s.Handle(alice, &protocol.StartGame{Opponent: protocol.AnyOpponent, Mod: duel.ModName})
	s.Handle(alice, &protocol.StartGame{Opponent: protocol.AnyOpponent, Mod: duel.ModName})

	assert.Equal(t, 0, s.GetStats().ActiveGames)
	assert.Len(t, alice.kinds(protocol.KindWait), 2)
}

func TestStartAgainstAIStartsImmediately(t *testing.T) {
	s := testServer(t, ai.Profile{Name: "Sparring Bot", Scorer: "passive", Delay: time.Hour})
	alice := connect(t, s, 100, "alice")

	var botID int64
	s.clients.Range(func(c ClientIO) {
		if _, ok := c.(*AgentClient); ok {
			botID = c.ID()
		}
	})
	require.NotZero(t, botID)

	s.Handle(alice, &protocol.StartGame{Opponent: botID, Mod: duel.ModName})
	assert.Equal(t, 1, s.GetStats().ActiveGames)
	assert.Len(t, alice.kinds(protocol.KindNewGame), 1)
}

func TestStartWithUnknownModIsRejected(t *testing.T) {
	s := testServer(t)
	alice := connect(t, s, 100, "alice")

	s.Handle(alice, &protocol.StartGame{Opponent: protocol.AnyOpponent, Mod: "chess"})
	assert.Len(t, alice.kinds(protocol.KindError), 1)
	assert.Empty(t, alice.kinds(protocol.KindWait))
}

func TestStartAgainstUnknownUserIsRejected(t *testing.T) {
	s := testServer(t)
	alice := connect(t, s, 100, "alice")

	s.Handle(alice, &protocol.StartGame{Opponent: 4242, Mod: duel.ModName})
	assert.Len(t, alice.kinds(protocol.KindError), 1)
}

func TestStartAgainstIdleHumanIsRejected(t *testing.T) {
	s := testServer(t)
	alice := connect(t, s, 100, "alice")
	bob := connect(t, s, 101, "bob")

	s.Handle(alice, &protocol.StartGame{Opponent: bob.ID(), Mod: duel.ModName})
	assert.Len(t, alice.kinds(protocol.KindError), 1)
	assert.Equal(t, 0, s.GetStats().ActiveGames)
}

func TestStartAgainstWaitingHumanPairs(t *testing.T) {
	s := testServer(t)
	alice := connect(t, s, 100, "alice")
	bob := connect(t, s, 101, "bob")

	s.Handle(bob, &protocol.StartGame{Opponent: protocol.AnyOpponent, Mod: duel.ModName})
	s.Handle(alice, &protocol.StartGame{Opponent: bob.ID(), Mod: duel.ModName})

	assert.Equal(t, 1, s.GetStats().ActiveGames)
	assert.Len(t, bob.kinds(protocol.KindNewGame), 1)
}

func TestUseAbilityOnUnknownGameIsRejected(t *testing.T) {
	s := testServer(t)
	alice := connect(t, s, 100, "alice")

	s.Handle(alice, &protocol.UseAbility{GameID: 9000, ID: 1, Action: "end_turn"})
	assert.Len(t, alice.kinds(protocol.KindError), 1)
}

func TestUseAbilityRoutedToMatch(t *testing.T) {
	s := testServer(t)
	alice := connect(t, s, 100, "alice")
	bob := connect(t, s, 101, "bob")

	s.Handle(alice, &protocol.StartGame{Opponent: protocol.AnyOpponent, Mod: duel.ModName})
	s.Handle(bob, &protocol.StartGame{Opponent: protocol.AnyOpponent, Mod: duel.ModName})

	// Seat 0 is alice: she queued first.
	endID := alice.useable("end_turn")
	require.GreaterOrEqual(t, endID, 0)
	before := len(bob.kinds(protocol.KindResetActions))
	s.Handle(alice, &protocol.UseAbility{GameID: 1, ID: endID, Action: "end_turn"})

	assert.Empty(t, alice.kinds(protocol.KindError))
	assert.Greater(t, len(bob.kinds(protocol.KindResetActions)), before, "resolved actions re-offer to every seat")
}

func TestChatReachesEveryLoggedInUser(t *testing.T) {
	s := testServer(t)
	alice := connect(t, s, 100, "alice")
	bob := connect(t, s, 101, "bob")

	s.Handle(alice, &protocol.Chat{Message: "good luck"})

	for _, c := range []*fakeClient{alice, bob} {
		found := false
		for _, m := range c.messages() {
			if chat, ok := m.(*protocol.Chat); ok && chat.From == "alice" && chat.Message == "good luck" {
				found = true
			}
		}
		assert.True(t, found)
	}
}

func TestQueryUsersListsHumansAndAgents(t *testing.T) {
	s := testServer(t, ai.Profile{Name: "Sparring Bot", Scorer: "passive", Delay: time.Hour})
	alice := connect(t, s, 100, "alice")
	_ = connect(t, s, 101, "bob")

	s.Handle(alice, &protocol.ServerQuery{Request: protocol.QueryUsers})

	names := make(map[string]bool)
	for _, m := range alice.messages() {
		if us, ok := m.(*protocol.UserStatus); ok {
			names[us.Name] = true
		}
	}
	assert.True(t, names["alice"])
	assert.True(t, names["bob"])
	assert.True(t, names["Sparring Bot"])
}

func TestQueryModsListsRegisteredMods(t *testing.T) {
	s := testServer(t)
	alice := connect(t, s, 100, "alice")

	s.Handle(alice, &protocol.ServerQuery{Request: protocol.QueryMods})
	assert.GreaterOrEqual(t, len(alice.kinds(protocol.KindAvailableMods)), 2, "once at login, once per query")
}

func TestDisconnectCancelsQueueEntry(t *testing.T) {
	s := testServer(t)
	alice := connect(t, s, 100, "alice")
	bob := connect(t, s, 101, "bob")

	s.Handle(alice, &protocol.StartGame{Opponent: protocol.AnyOpponent, Mod: duel.ModName})
	s.Disconnect(alice, nil)

	s.Handle(bob, &protocol.StartGame{Opponent: protocol.AnyOpponent, Mod: duel.ModName})
	assert.Equal(t, 0, s.GetStats().ActiveGames, "a cancelled entry must not be paired")
	assert.Len(t, bob.kinds(protocol.KindWait), 1)
}

func TestDisconnectBroadcastsPresence(t *testing.T) {
	s := testServer(t)
	alice := connect(t, s, 100, "alice")
	bob := connect(t, s, 101, "bob")

	s.Disconnect(bob, nil)

	var offline bool
	for _, m := range alice.messages() {
		if us, ok := m.(*protocol.UserStatus); ok && us.UserID == bob.ID() && us.Status == protocol.StatusOffline {
			offline = true
		}
	}
	assert.True(t, offline)
	assert.Equal(t, 1, s.clients.Len())
}

func TestDisconnectMidMatchLeavesMatchRunning(t *testing.T) {
	s := testServer(t)
	alice := connect(t, s, 100, "alice")
	bob := connect(t, s, 101, "bob")

	s.Handle(alice, &protocol.StartGame{Opponent: protocol.AnyOpponent, Mod: duel.ModName})
	s.Handle(bob, &protocol.StartGame{Opponent: protocol.AnyOpponent, Mod: duel.ModName})
	require.Equal(t, 1, s.GetStats().ActiveGames)

	s.Disconnect(bob, nil)
	assert.Equal(t, 1, s.GetStats().ActiveGames)

	endID := alice.useable("end_turn")
	require.GreaterOrEqual(t, endID, 0)
	s.Handle(alice, &protocol.UseAbility{GameID: 1, ID: endID, Action: "end_turn"})
	assert.Empty(t, alice.kinds(protocol.KindError))
}

func TestAgentSelfPlayEndsAndRemovesMatch(t *testing.T) {
	s := testServer(t,
		ai.Profile{Name: "Bot A", Scorer: "aggressive", Delay: 0},
		ai.Profile{Name: "Bot B", Scorer: "passive", Delay: 0},
	)

	var bots []ClientIO
	s.clients.Range(func(c ClientIO) {
		if _, ok := c.(*AgentClient); ok {
			bots = append(bots, c)
		}
	})
	require.Len(t, bots, 2)
	require.NoError(t, s.startMatch(bots[0], bots[1], duel.ModName))

	deadline := time.Now().Add(10 * time.Second)
	for s.GetStats().ActiveGames > 0 {
		if time.Now().After(deadline) {
			t.Fatal("agent self-play did not finish")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestShardedTableBasics(t *testing.T) {
	table := newClientTable(4)
	for i := int64(1); i <= 100; i++ {
		table.Put(newFakeClient(i, "u"))
	}
	assert.Equal(t, 100, table.Len())

	c, ok := table.Get(42)
	require.True(t, ok)
	assert.Equal(t, int64(42), c.ID())

	_, ok = table.Remove(42)
	require.True(t, ok)
	_, ok = table.Get(42)
	assert.False(t, ok)
	assert.Equal(t, 99, table.Len())

	seen := 0
	table.Range(func(ClientIO) { seen++ })
	assert.Equal(t, 99, seen)
}
