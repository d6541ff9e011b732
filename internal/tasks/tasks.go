package tasks

import "encoding/json"

// 任务类型常量
const (
	// TypeParticipationRemoval 定点补删参与记录：两步删除中
	// 成员记录已删、参与记录删除失败时排入。
	TypeParticipationRemoval = "participation:remove"
	// TypeMembershipReconcile 周期性对账：清理失去参与记录的
	// 成员资格（见 domain.OrphanMembership 的方向说明）。
	TypeMembershipReconcile = "membership:reconcile"
)

// ParticipationRemovalPayload 是定点补删任务的数据。
// 只携带定位缺口所需的键，不携带业务对象。
type ParticipationRemovalPayload struct {
	EventID uint `json:"event_id"`
	UserID  uint `json:"user_id"`
}

// NewParticipationRemovalTask 序列化补删任务的 payload。
func NewParticipationRemovalTask(eventID, userID uint) ([]byte, error) {
	return json.Marshal(ParticipationRemovalPayload{EventID: eventID, UserID: userID})
}

// NewMembershipReconcileTask 对账任务没有参数，payload 为空对象。
func NewMembershipReconcileTask() ([]byte, error) {
	return json.Marshal(struct{}{})
}
