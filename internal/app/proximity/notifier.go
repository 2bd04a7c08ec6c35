package proximity

// sendFunc encodes msg and queues it on c, reporting whether it was accepted.
type sendFunc func(c Conn, msg any) bool

// Notifier delivers directed messages to a user id. Delivery is best-effort:
// unknown ids and closed connections are dropped without retry or queueing.
type Notifier struct {
	registry *Registry
	send     sendFunc
}

// NewNotifier returns a notifier that resolves ids through registry.
func NewNotifier(registry *Registry, send sendFunc) *Notifier {
	return &Notifier{registry: registry, send: send}
}

// Notify sends msg to the connection currently registered for toUserID.
// It returns that connection and whether the message was accepted.
func (n *Notifier) Notify(toUserID string, msg any) (Conn, bool) {
	conn, _, ok := n.registry.FindByUserID(toUserID)
	if !ok {
		return nil, false
	}
	return conn, n.send(conn, msg)
}

// Click delivers a click_notice and you_were_clicked to the target and, once the
// notice is accepted, a clicked_ack back to from. fromName is used verbatim.
func (n *Notifier) Click(from Conn, req ClickRequest, fromName string) bool {
	_, target, ok := n.registry.FindByUserID(req.ToUserID)
	if !ok {
		return false
	}

	targetConn, delivered := n.Notify(req.ToUserID, ClickNoticeMessage{
		Type:         TypeClickNotice,
		FromUserID:   req.FromUserID,
		FromUserName: fromName,
		ToUserID:     target.ID,
		ToUserName:   target.Name,
	})
	if !delivered {
		return false
	}

	n.send(targetConn, YouWereClickedMessage{
		Type:       TypeYouWereClicked,
		FromUserID: req.FromUserID,
	})

	n.send(from, ClickedAckMessage{
		Type:     TypeClickedAck,
		ToUserID: target.ID,
	})

	return true
}
