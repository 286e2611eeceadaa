package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/573dev/gfdm-server/internal/common"
	"github.com/573dev/gfdm-server/internal/eamuse/codec"
	"github.com/573dev/gfdm-server/internal/eamuse/envelope"
	"github.com/573dev/gfdm-server/internal/logging"
	"github.com/573dev/gfdm-server/internal/server/identity"
)

// Card management status codes. These are business outcomes reported to the
// cabinet as a response attribute, never Go errors; the cabinet drives its
// registration and PIN-entry screens off them.
const (
	statusSuccess       = 0
	statusNoProfile     = 109
	statusNotAllowed    = 110
	statusNotRegistered = 112
	statusInvalidPIN    = 116
)

// CardMng implements the card management service: the card tap, the PIN
// check and the first-time registration flow.
type CardMng struct {
	store  identity.Store
	logger logging.Logger
}

func NewCardMng(store identity.Store, logger logging.Logger) *CardMng {
	return &CardMng{store: store, logger: logger.With("service", "cardmng")}
}

func (s *CardMng) Handlers() map[string]Handler {
	return map[string]Handler{
		"inquire":     s.Inquire,
		"getrefid":    s.GetRefID,
		"authpass":    s.AuthPass,
		"bindmodel":   s.BindModel,
		"getkeepspan": s.GetKeepSpan,
		"getdatalist": s.GetDataList,
	}
}

// Inquire resolves a tapped card.
//
//	<cardmng cardid="E0040100DE52896C" cardtype="1" method="inquire" update="1"/>
//
// An unknown card answers not-registered so the cabinet starts the
// registration flow; a known card answers with its refid and whether a game
// profile is already bound to it.
func (s *CardMng) Inquire(ctx context.Context, req *envelope.Request) (*codec.Node, error) {
	module := req.Document.FirstChild()
	cardID := module.Attr("cardid")

	user, err := s.store.UserByCardID(ctx, cardID)
	if errors.Is(err, common.ErrNotFound) {
		s.logger.Info(ctx, "unregistered card inquiry", "cardid", cardID)
		return codec.New("response").Add(
			codec.New("cardmng",
				"newflag", "1",
				"binded", "0",
				"status", strconv.Itoa(statusNotRegistered))), nil
	}
	if err != nil {
		return nil, err
	}

	refid, err := s.store.RefIDForUser(ctx, user.UserID)
	if errors.Is(err, common.ErrNotFound) {
		// A registered card always has a refid; a user row without one
		// means the registration transaction was violated somewhere.
		return nil, fmt.Errorf("card %s has user %d but no refid: %w",
			cardID, user.UserID, common.ErrIntegrity)
	}
	if err != nil {
		return nil, err
	}

	bound, err := s.store.HasProfile(ctx, refid.RefID)
	if err != nil {
		return nil, err
	}

	return codec.New("response").Add(
		codec.New("cardmng",
			"refid", refid.RefID,
			"dataid", refid.RefID,
			"newflag", "0",
			"binded", boolAttr(bound),
			"expired", "0",
			"exflag", "0",
			"useridflag", "1",
			"extidflag", "1",
			"status", strconv.Itoa(statusSuccess))), nil
}

// GetRefID registers a brand-new card: the cabinet sends the card id and the
// PIN the player just chose, and gets back the freshly minted refid.
//
//	<cardmng cardid="E0040100DE52896C" method="getrefid" passwd="1234"/>
func (s *CardMng) GetRefID(ctx context.Context, req *envelope.Request) (*codec.Node, error) {
	module := req.Document.FirstChild()
	cardID := module.Attr("cardid")
	pin := module.Attr("passwd")

	refid, err := s.store.RegisterCard(ctx, cardID, pin)
	if err != nil {
		return nil, fmt.Errorf("registering card %s: %w", cardID, err)
	}

	s.logger.Info(ctx, "card registered", "cardid", cardID, "refid", refid.RefID)

	return codec.New("response").Add(
		codec.New("cardmng",
			"dataid", refid.RefID,
			"refid", refid.RefID)), nil
}

// AuthPass checks the PIN for an already-resolved refid.
//
//	<cardmng method="authpass" pass="1234" refid="ADE0FE0B14AEAEFC"/>
func (s *CardMng) AuthPass(ctx context.Context, req *envelope.Request) (*codec.Node, error) {
	module := req.Document.FirstChild()
	refID := module.Attr("refid")
	pin := module.Attr("pass")

	ok, err := s.store.VerifyPIN(ctx, refID, pin)
	if errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("authpass for unissued refid %s: %w", refID, common.ErrIntegrity)
	}
	if err != nil {
		return nil, err
	}

	status := statusSuccess
	if !ok {
		status = statusInvalidPIN
	}
	return codec.New("response").Add(
		codec.New("cardmng", "status", strconv.Itoa(status))), nil
}

// BindModel binds the refid to this game model by creating its profile row.
// The row starts empty; the title's own registration fills it in.
func (s *CardMng) BindModel(ctx context.Context, req *envelope.Request) (*codec.Node, error) {
	module := req.Document.FirstChild()
	refID := module.Attr("refid")

	if err := s.store.SaveProfile(ctx, refID, []byte("{}")); err != nil {
		return nil, fmt.Errorf("binding refid %s: %w", refID, err)
	}

	return codec.New("response").Add(
		codec.New("cardmng", "dataid", refID)), nil
}

// GetKeepSpan reports the PIN keep span. The value is not known to matter;
// 30 keeps cabinets happy.
func (s *CardMng) GetKeepSpan(ctx context.Context, req *envelope.Request) (*codec.Node, error) {
	return codec.New("response").Add(
		codec.New("cardmng", "keepspan", "30")), nil
}

// GetDataList returns an empty list.
func (s *CardMng) GetDataList(ctx context.Context, req *envelope.Request) (*codec.Node, error) {
	return codec.New("response").Add(codec.New("cardmng")), nil
}
