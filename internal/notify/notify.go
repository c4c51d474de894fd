// Package notify is the outbound side-channel for member-facing events.
// Engines call it after their transactions commit and never wait on it.
package notify

import (
	"github.com/stanmart1/rest-empire-sub000/internal/logger"
	"github.com/stanmart1/rest-empire-sub000/internal/models"
	"go.uber.org/zap"
)

type Notifier interface {
	RankAchieved(memberID uint, rankName string)
	BonusCredited(bonus models.Bonus)
	PayoutStatusChanged(payout models.Payout)
}

// LogNotifier records events to the application log. Production wiring
// replaces it with the email/push collaborator.
type LogNotifier struct{}

func NewLog() *LogNotifier { return &LogNotifier{} }

func (n *LogNotifier) RankAchieved(memberID uint, rankName string) {
	logger.Log.Info("rank achieved",
		zap.Uint("member_id", memberID),
		zap.String("rank", rankName))
}

func (n *LogNotifier) BonusCredited(bonus models.Bonus) {
	logger.Log.Info("bonus credited",
		zap.Uint("member_id", bonus.MemberID),
		zap.String("kind", string(bonus.Kind)),
		zap.String("amount", bonus.Amount.String()),
		zap.String("currency", bonus.Currency))
}

func (n *LogNotifier) PayoutStatusChanged(payout models.Payout) {
	logger.Log.Info("payout status changed",
		zap.Uint("member_id", payout.MemberID),
		zap.Uint("payout_id", payout.ID),
		zap.String("status", string(payout.Status)))
}
