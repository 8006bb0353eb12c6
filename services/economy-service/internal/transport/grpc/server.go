package grpc_server

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/waste3d/civicplatform-api/services/economy-service/internal/application/usecase"
	"github.com/waste3d/civicplatform-api/services/economy-service/internal/domain"
	"github.com/waste3d/civicplatform-api/services/economy-service/internal/infrastructure/repository"
)

type EconomyServer struct {
	store        repository.ProfileStore
	ledger       *usecase.CurrencyLedger
	achievements *usecase.AchievementEngine
	purchases    *usecase.PurchaseEngine
	items        *usecase.ItemEffectEngine
}

func NewEconomyServer(
	store repository.ProfileStore,
	ledger *usecase.CurrencyLedger,
	achievements *usecase.AchievementEngine,
	purchases *usecase.PurchaseEngine,
	items *usecase.ItemEffectEngine,
) *EconomyServer {
	return &EconomyServer{
		store:        store,
		ledger:       ledger,
		achievements: achievements,
		purchases:    purchases,
		items:        items,
	}
}

func codeFor(reason domain.FailureReason) codes.Code {
	switch reason {
	case domain.ReasonNone:
		return codes.OK
	case domain.ReasonProfileNotFound, domain.ReasonItemNotFound:
		return codes.NotFound
	case domain.ReasonItemUnavailable, domain.ReasonOutOfStock, domain.ReasonOfferExpired,
		domain.ReasonNoUsableItem, domain.ReasonItemExpired, domain.ReasonInsufficientFunds:
		return codes.FailedPrecondition
	case domain.ReasonInvalidAmount:
		return codes.InvalidArgument
	case domain.ReasonUnknownEffect:
		return codes.Internal
	default:
		return codes.Unavailable
	}
}

// rejected turns a typed failure into a status whose message starts with the
// reason, e.g. "OUT_OF_STOCK: This item is sold out".
func rejected(reason domain.FailureReason, message string) error {
	return status.Error(codeFor(reason), string(reason)+": "+message)
}

func toStatus(err error) error {
	reason := domain.ReasonFor(err)
	if reason == domain.ReasonTryAgain {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return status.FromContextError(err).Err()
		}
		return rejected(reason, "try again")
	}
	return rejected(reason, err.Error())
}

func userID(in *structpb.Struct) (string, error) {
	id := in.GetFields()["user_id"].GetStringValue()
	if _, err := uuid.Parse(id); err != nil {
		return "", status.Error(codes.InvalidArgument, "user_id must be a UUID")
	}
	return id, nil
}

func requiredString(in *structpb.Struct, key string) (string, error) {
	v := in.GetFields()[key].GetStringValue()
	if v == "" {
		return "", status.Errorf(codes.InvalidArgument, "%s is required", key)
	}
	return v, nil
}

// toStruct converts any JSON-encodable value into a Struct document.
func toStruct(v interface{}) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func (s *EconomyServer) GetProfile(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := userID(in)
	if err != nil {
		return nil, err
	}
	p, err := s.store.ReadProfile(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(map[string]interface{}{
		"profile":  p,
		"progress": s.achievements.Progress(p),
	})
}

func (s *EconomyServer) CreateProfile(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := userID(in)
	if err != nil {
		return nil, err
	}
	p, err := s.store.CreateProfile(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(map[string]interface{}{"profile": p})
}

// ApplyCurrency lets trusted services grant or charge currency, e.g. a vote
// reward. Amounts must be whole numbers.
func (s *EconomyServer) ApplyCurrency(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := userID(in)
	if err != nil {
		return nil, err
	}
	reason, err := requiredString(in, "reason")
	if err != nil {
		return nil, err
	}
	f := in.GetFields()
	amount := f["amount"].GetNumberValue()
	if amount != float64(int64(amount)) {
		return nil, rejected(domain.ReasonInvalidAmount, "amount must be a whole number")
	}

	ct, err := s.ledger.Apply(ctx, id,
		domain.Currency(f["currency"].GetStringValue()),
		int64(amount),
		reason,
		f["is_spending"].GetBoolValue(),
		f["related_item_id"].GetStringValue(),
	)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(map[string]interface{}{"transaction": ct})
}

func (s *EconomyServer) Purchase(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := userID(in)
	if err != nil {
		return nil, err
	}
	itemID, err := requiredString(in, "item_id")
	if err != nil {
		return nil, err
	}
	res := s.purchases.Purchase(ctx, id, itemID)
	if !res.OK {
		return nil, rejected(res.Reason, res.Message)
	}
	return toStruct(res)
}

func (s *EconomyServer) UseItem(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := userID(in)
	if err != nil {
		return nil, err
	}
	itemID, err := requiredString(in, "item_id")
	if err != nil {
		return nil, err
	}
	res := s.items.Use(ctx, id, itemID, in.GetFields()["target_id"].GetStringValue())
	if !res.OK {
		return nil, rejected(res.Reason, res.Message)
	}
	return toStruct(res)
}

func (s *EconomyServer) RecordAction(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := userID(in)
	if err != nil {
		return nil, err
	}
	action, err := requiredString(in, "action")
	if err != nil {
		return nil, err
	}
	return toStruct(map[string]interface{}{
		"unlocked": s.achievements.RecordAction(ctx, id, action),
	})
}

func (s *EconomyServer) Evaluate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := userID(in)
	if err != nil {
		return nil, err
	}
	return toStruct(map[string]interface{}{
		"unlocked": s.achievements.Evaluate(ctx, id, nil),
	})
}

// UnaryLogger logs every call with its status code.
func UnaryLogger(log logrus.FieldLogger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		entry := log.WithFields(logrus.Fields{
			"method":   info.FullMethod,
			"code":     status.Code(err).String(),
			"duration": time.Since(start),
		})
		switch status.Code(err) {
		case codes.Internal, codes.Unavailable, codes.Unknown:
			entry.WithError(err).Error("rpc failed")
		default:
			entry.Debug("rpc handled")
		}
		return resp, err
	}
}
