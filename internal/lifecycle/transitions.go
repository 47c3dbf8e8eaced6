package lifecycle

import "jobsphere/internal/model"

// ladder 是雇主推进投递的正向顺序，可跳级但不可回退。
var ladder = map[model.ApplicationStatus]int{
	model.ApplicationPending:            0,
	model.ApplicationReviewed:           1,
	model.ApplicationShortlisted:        2,
	model.ApplicationInterviewScheduled: 3,
	model.ApplicationInterviewCompleted: 4,
	model.ApplicationOfferMade:          5,
	model.ApplicationAccepted:           6,
}

// CanTransition 判断雇主能否将投递从 from 推进到 to。
// accepted 只能由 offer_made 到达，rejected 可由任一非终态到达。
func CanTransition(from, to model.ApplicationStatus) bool {
	if from.Terminal() {
		return false
	}
	switch to {
	case model.ApplicationRejected:
		return true
	case model.ApplicationAccepted:
		return from == model.ApplicationOfferMade
	case model.ApplicationPending, model.ApplicationWithdrawn:
		return false
	}
	fromRank, ok := ladder[from]
	if !ok {
		return false
	}
	toRank, ok := ladder[to]
	return ok && toRank > fromRank
}

// employerTarget 判断状态能否作为雇主操作的目标。
func employerTarget(s model.ApplicationStatus) bool {
	return s != model.ApplicationPending && s != model.ApplicationWithdrawn
}
