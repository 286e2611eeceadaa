package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/573dev/gfdm-server/internal/common"
	"github.com/573dev/gfdm-server/internal/eamuse/codec"
	"github.com/573dev/gfdm-server/internal/eamuse/envelope"
	"github.com/573dev/gfdm-server/internal/logging"
	"github.com/573dev/gfdm-server/internal/server/identity"
)

// Card states reported by cardutil check.
const (
	cardStateNew      = 0
	cardStateExisting = 2
)

// profileData is the persisted shape of a player profile. It lives in the
// profiles table as JSON and is owned entirely by this service.
type profileData struct {
	Name         string `json:"name"`
	Chara        int    `json:"chara"`
	IsSuccession bool   `json:"is_succession"`
}

// Local carries the game-specific modules. Unlike the other services it
// routes on the module tag, not the method attribute: one route id serves
// shopinfo, demodata and cardutil.
type Local struct {
	store  identity.Store
	logger logging.Logger
}

func NewLocal(store identity.Store, logger logging.Logger) *Local {
	return &Local{store: store, logger: logger.With("service", "local")}
}

// Handlers is keyed by module tag; the registry registers this service with
// module routing.
func (s *Local) Handlers() map[string]Handler {
	return map[string]Handler{
		"shopinfo": s.ShopInfo,
		"demodata": s.DemoData,
		"cardutil": s.CardUtil,
	}
}

// ShopInfo handles shop registration. The cabinet uploads its test-mode
// settings; the interesting parts go to the log and the cabinet gets its
// cabinet id back.
func (s *Local) ShopInfo(ctx context.Context, req *envelope.Request) (*codec.Node, error) {
	if req.Method != "regist" {
		return nil, &RoutingError{Service: "shopinfo", Method: req.Method}
	}

	shop := req.Document.FirstChild().Child("shop")
	if shop != nil {
		s.logger.Info(ctx, "shop registered",
			"name", shop.ChildText("name"),
			"locationid", shop.ChildText("locationid"),
			"hardwareid", shop.ChildText("hardwareid"))
	}

	locationID := codec.New("locationid")
	locationID.Text = "nowhere"
	data := codec.New("data").Add(
		codec.Typed("cabid", codec.TypeU32, "1"),
		locationID,
		codec.Typed("is_send", codec.TypeU8, "1"))

	return codec.New("response").Add(
		codec.New("shopinfo").Add(data)), nil
}

// DemoData serves attract-mode data. Nothing is offered yet; the expire
// attribute alone satisfies the cabinet.
func (s *Local) DemoData(ctx context.Context, req *envelope.Request) (*codec.Node, error) {
	if req.Method != "get" {
		return nil, &RoutingError{Service: "demodata", Method: req.Method}
	}
	return codec.New("response").Add(
		codec.New("demodata", "expire", "600")), nil
}

// CardUtil handles the title-side half of card registration: check tells the
// game whether the refid already has a profile, regist creates one.
func (s *Local) CardUtil(ctx context.Context, req *envelope.Request) (*codec.Node, error) {
	switch req.Method {
	case "check":
		return s.cardUtilCheck(ctx, req)
	case "regist":
		return s.cardUtilRegist(ctx, req)
	default:
		return nil, &RoutingError{Service: "cardutil", Method: req.Method}
	}
}

// cardUtilCheck handles:
//
//	<cardutil method="check">
//	    <card no="1">
//	        <refid __type="str">ADE0FE0B14AEAEFC</refid>
//	        <uid __type="str">E0040100DE52896C</uid>
//	    </card>
//	</cardutil>
func (s *Local) cardUtilCheck(ctx context.Context, req *envelope.Request) (*codec.Node, error) {
	card := req.Document.FirstChild().Child("card")
	if card == nil {
		return nil, fmt.Errorf("cardutil check without card element: %w", common.ErrIntegrity)
	}
	refID := card.ChildText("refid")
	no := card.Attr("no")

	profile, err := s.store.ProfileByRefID(ctx, refID)
	if errors.Is(err, common.ErrNotFound) {
		return codec.New("response").Add(
			codec.New("cardutil").Add(
				codec.New("card", "no", no, "state", strconv.Itoa(cardStateNew)).Add(
					codec.Typed("kind", codec.TypeS8, "0")))), nil
	}
	if err != nil {
		return nil, err
	}

	var data profileData
	if err := json.Unmarshal(profile.Data, &data); err != nil {
		return nil, fmt.Errorf("profile for refid %s is corrupt: %w", refID, err)
	}

	return codec.New("response").Add(
		codec.New("cardutil").Add(
			codec.New("card", "no", no, "state", strconv.Itoa(cardStateExisting)).Add(
				codec.Typed("kind", codec.TypeS8, "0"),
				codec.Typed("name", codec.TypeStr, data.Name),
				codec.Typed("chara", codec.TypeU8, strconv.Itoa(data.Chara)),
				codec.Typed("gdp", codec.TypeU32, "0"),
				codec.Typed("skill", codec.TypeS32, "0"),
				codec.Typed("all_skill", codec.TypeS32, "0"),
				codec.Typed("syogo", codec.TypeStr, "0 0")))), nil
}

// cardUtilRegist handles:
//
//	<cardutil method="regist">
//	    <data no="1">
//	        <refid __type="str">ADE0FE0B14AEAEFC</refid>
//	        <name __type="str">AAAA</name>
//	        <chara __type="u8">0</chara>
//	        <uid __type="str">E0040100DE52896C</uid>
//	        <cabid __type="u32">1</cabid>
//	        <is_succession __type="s8">0</is_succession>
//	    </data>
//	</cardutil>
func (s *Local) cardUtilRegist(ctx context.Context, req *envelope.Request) (*codec.Node, error) {
	data := req.Document.FirstChild().Child("data")
	if data == nil {
		return nil, fmt.Errorf("cardutil regist without data element: %w", common.ErrIntegrity)
	}
	refID := data.ChildText("refid")
	cardID := data.ChildText("uid")

	// The refid must resolve to the card's owner before a profile may be
	// written under it.
	user, err := s.store.UserByRefID(ctx, refID)
	if err != nil {
		return nil, fmt.Errorf("cardutil regist for refid %s: %w", refID, err)
	}
	owner, err := s.store.UserByCardID(ctx, cardID)
	if err != nil {
		return nil, fmt.Errorf("cardutil regist for card %s: %w", cardID, err)
	}
	if owner.UserID != user.UserID {
		return nil, fmt.Errorf("card %s does not belong to refid %s owner: %w",
			cardID, refID, common.ErrIntegrity)
	}

	chara, _ := strconv.Atoi(data.ChildText("chara"))
	payload, err := json.Marshal(profileData{
		Name:         data.ChildText("name"),
		Chara:        chara,
		IsSuccession: data.ChildText("is_succession") == "1",
	})
	if err != nil {
		return nil, err
	}

	if err := s.store.SaveProfile(ctx, refID, payload); err != nil {
		return nil, fmt.Errorf("saving profile for refid %s: %w", refID, err)
	}

	s.logger.Info(ctx, "profile registered", "refid", refID, "userid", user.UserID)

	return codec.New("response").Add(codec.New("cardutil")), nil
}
