package protocol

// Kind tags every wire message. The set is closed: decoding an unregistered
// kind fails with ErrUnknownKind and the router drops the message.
type Kind string

const (
	// Client to server

	KindLogin          Kind = "login"
	KindStartGame      Kind = "startgame"
	KindUseAbility     Kind = "use"
	KindRequestTargets Kind = "requestTargets"

	// Server to client

	KindWelcome          Kind = "welcome"
	KindWait             Kind = "wait"
	KindNewGame          Kind = "newgame"
	KindPlayer           Kind = "player"
	KindZone             Kind = "zone"
	KindCardInfo         Kind = "card"
	KindUseableAction    Kind = "useable"
	KindAvailableTargets Kind = "availableTargets"
	KindUpdate           Kind = "update"
	KindZoneChange       Kind = "zoneChange"
	KindResetActions     Kind = "resetActions"
	KindGameOver         Kind = "gameOver"
	KindError            Kind = "error"

	// Both directions, lobby concerns

	KindChat          Kind = "chat"
	KindUserStatus    Kind = "userStatus"
	KindServerQuery   Kind = "query"
	KindAvailableMods Kind = "availableMods"
)

// Message is one logical operation on the wire.
type Message interface {
	MessageKind() Kind
}

// UserStatusValue is the connectivity state published for an endpoint.
type UserStatusValue string

const (
	StatusOnline  UserStatusValue = "ONLINE"
	StatusOffline UserStatusValue = "OFFLINE"
)

// Welcome status codes, HTTP-flavored.
const (
	WelcomeOK     = 200
	WelcomeDenied = 400
)

// ServerQuery request values.
const (
	QueryUsers = "users"
	QueryMods  = "mods"
)

// Login establishes the identity of a connecting client.
type Login struct {
	Username string `json:"username"`
}

func (*Login) MessageKind() Kind { return KindLogin }

// Welcome is the login result.
type Welcome struct {
	Status  int    `json:"status"`
	UserID  int64  `json:"userId"`
	Message string `json:"message"`
}

func (*Welcome) MessageKind() Kind { return KindWelcome }

// StartGame requests or joins a match. Opponent is a user id, or AnyOpponent
// to pair with whoever is waiting.
type StartGame struct {
	Opponent int64  `json:"opponent"`
	Mod      string `json:"mod"`
}

// AnyOpponent pairs the requester with any waiting client or an AI filler.
const AnyOpponent int64 = -1

func (*StartGame) MessageKind() Kind { return KindStartGame }

// Wait tells a requester it is queued with no opponent yet.
type Wait struct {
	Message string `json:"message"`
}

func (*Wait) MessageKind() Kind { return KindWait }

// NewGame announces a created match and the recipient's seat.
type NewGame struct {
	GameID      int64 `json:"gameId"`
	PlayerIndex int   `json:"playerIndex"`
}

func (*NewGame) MessageKind() Kind { return KindNewGame }

// Player is the initial snapshot of one seated player.
type Player struct {
	ID         int            `json:"id"`
	Index      int            `json:"index"`
	Name       string         `json:"name"`
	Properties map[string]int `json:"properties"`
}

func (*Player) MessageKind() Kind { return KindPlayer }

// Zone carries zone metadata. Hidden zones expose only their size.
type Zone struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Owner int    `json:"owner"`
	Size  int    `json:"size"`
	Known bool   `json:"known"`
}

func (*Zone) MessageKind() Kind { return KindZone }

// CardInfo details one entity inside a zone the recipient may see.
type CardInfo struct {
	ID         int            `json:"id"`
	Zone       int            `json:"zone"`
	Name       string         `json:"name"`
	Properties map[string]int `json:"properties"`
}

func (*CardInfo) MessageKind() Kind { return KindCardInfo }

// UseableAction offers one currently legal action to the client.
type UseableAction struct {
	ID             int    `json:"id"`
	Action         string `json:"action"`
	TargetRequired bool   `json:"targetRequired"`
}

func (*UseableAction) MessageKind() Kind { return KindUseableAction }

// RequestTargets asks the server for the valid targets of an offered action.
type RequestTargets struct {
	GameID int64  `json:"gameId"`
	ID     int    `json:"id"`
	Action string `json:"action"`
}

func (*RequestTargets) MessageKind() Kind { return KindRequestTargets }

// AvailableTargets answers a RequestTargets with the eligible entity ids.
type AvailableTargets struct {
	GameID  int64  `json:"gameId"`
	ID      int    `json:"id"`
	Action  string `json:"action"`
	Min     int    `json:"min"`
	Max     int    `json:"max"`
	Targets []int  `json:"targets"`
}

func (*AvailableTargets) MessageKind() Kind { return KindAvailableTargets }

// UseAbility applies an action, optionally with chosen targets.
type UseAbility struct {
	GameID  int64  `json:"gameId"`
	ID      int    `json:"id"`
	Action  string `json:"action"`
	Targets []int  `json:"targets,omitempty"`
}

func (*UseAbility) MessageKind() Kind { return KindUseAbility }

// Update reports a single changed attribute of an entity.
type Update struct {
	ID    int    `json:"id"`
	Key   string `json:"key"`
	Value int    `json:"value"`
}

func (*Update) MessageKind() Kind { return KindUpdate }

// ZoneChange reports an entity moving between zones.
type ZoneChange struct {
	Entity      int `json:"entity"`
	Source      int `json:"sourceZone"`
	Destination int `json:"destinationZone"`
}

func (*ZoneChange) MessageKind() Kind { return KindZoneChange }

// ResetActions tells the client to discard all previously offered actions.
type ResetActions struct{}

func (*ResetActions) MessageKind() Kind { return KindResetActions }

// GameOver announces the end of a match.
type GameOver struct{}

func (*GameOver) MessageKind() Kind { return KindGameOver }

// Error reports a rejected client request. The match state is unchanged.
type Error struct {
	Message string `json:"message"`
}

func (*Error) MessageKind() Kind { return KindError }

// Chat carries a lobby chat line.
type Chat struct {
	From    string `json:"from"`
	Message string `json:"message"`
}

func (*Chat) MessageKind() Kind { return KindChat }

// UserStatus broadcasts presence changes of an endpoint.
type UserStatus struct {
	UserID int64           `json:"userId"`
	Name   string          `json:"name"`
	Status UserStatusValue `json:"status"`
}

func (*UserStatus) MessageKind() Kind { return KindUserStatus }

// ServerQuery asks for lobby information.
type ServerQuery struct {
	Request string `json:"request"`
}

func (*ServerQuery) MessageKind() Kind { return KindServerQuery }

// AvailableMods lists the rule packs the server can start.
type AvailableMods struct {
	Mods []string `json:"mods"`
}

func (*AvailableMods) MessageKind() Kind { return KindAvailableMods }
