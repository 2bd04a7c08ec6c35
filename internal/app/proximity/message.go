package proximity

import (
	"encoding/json"

	"nearby/internal/app/user"
	"nearby/internal/pkg/errs"
)

// MessageType is the "type" tag carried by every frame.
type MessageType string

// Inbound message types.
const (
	TypeHomeReady      MessageType = "home_ready"
	TypeUserJoin       MessageType = "user_join"
	TypeLocationUpdate MessageType = "location_update"
	TypeUserClick      MessageType = "user_click"
)

// Outbound message types.
const (
	TypeNearbyUserJoined MessageType = "nearby_user_joined"
	TypeNearbyUsers      MessageType = "nearby_users"
	TypeClickNotice      MessageType = "click_notice"
	TypeClickedAck       MessageType = "clicked_ack"
	TypeYouWereClicked   MessageType = "you_were_clicked"
)

// JoinedNoticeText is the body of the anonymous join announcement sent to home watchers.
const JoinedNoticeText = "A new user joined nearby."

// NearbyUser is one entry of a nearby list.
type NearbyUser struct {
	UserID         string  `json:"userId"`
	Lat            float64 `json:"lat"`
	Lng            float64 `json:"lng"`
	DistanceMeters uint    `json:"distanceMeters"`
}

// RosterUser is one entry of the full roster.
type RosterUser struct {
	UserID string  `json:"userId"`
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
}

// NearbyUsersMessage carries a personalized nearby list and the full roster.
type NearbyUsersMessage struct {
	Type        MessageType  `json:"type"`
	NearbyUsers []NearbyUser `json:"nearbyUsers"`
	AllUsers    []RosterUser `json:"allUsers"`
	Server      string       `json:"server"`
}

// NearbyUserJoinedMessage announces a join, either anonymously (Message) or with the joiner's id.
type NearbyUserJoinedMessage struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message,omitempty"`
	UserID  string      `json:"userId,omitempty"`
}

// ClickNoticeMessage tells the recipient who clicked them.
type ClickNoticeMessage struct {
	Type         MessageType `json:"type"`
	FromUserID   string      `json:"fromUserId"`
	FromUserName string      `json:"fromUserName"`
	ToUserID     string      `json:"toUserId"`
	ToUserName   string      `json:"toUserName,omitempty"`
}

// ClickedAckMessage confirms to the clicker that the notice was delivered.
type ClickedAckMessage struct {
	Type     MessageType `json:"type"`
	ToUserID string      `json:"toUserId"`
}

// YouWereClickedMessage is the compact companion of ClickNoticeMessage.
type YouWereClickedMessage struct {
	Type       MessageType `json:"type"`
	FromUserID string      `json:"fromUserId"`
}

// ClickRequest is a validated user_click frame.
type ClickRequest struct {
	FromUserID   string
	FromUserName string
	ToUserID     string
}

// Inbound is a validated inbound frame. Only the field matching Type is set.
type Inbound struct {
	Type     MessageType
	UserID   string
	Location user.Record
	Click    ClickRequest
}

// rawFrame accepts every inbound schema. Coordinates are pointers so absence and
// JSON null are told apart from zero. From/To are legacy aliases of FromUserID/ToUserID.
type rawFrame struct {
	Type         MessageType `json:"type"`
	UserID       string      `json:"userId"`
	UserName     string      `json:"userName"`
	Lat          *float64    `json:"lat"`
	Lng          *float64    `json:"lng"`
	FromUserID   string      `json:"fromUserId"`
	FromUserName string      `json:"fromUserName"`
	ToUserID     string      `json:"toUserId"`
	From         string      `json:"from"`
	To           string      `json:"to"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// DecodeInbound parses and validates one text frame.
func DecodeInbound(data []byte) (Inbound, *errs.CustomError) {
	var raw rawFrame
	if err := json.Unmarshal(data, &raw); err != nil {
		return Inbound{}, errs.NewError(errs.ErrInvalidJSONFormat)
	}

	in := Inbound{Type: raw.Type}

	switch raw.Type {
	case TypeHomeReady:

	case TypeUserJoin:
		in.UserID = user.NormalizeID(raw.UserID)
		if in.UserID == "" {
			return Inbound{}, errs.NewError(errs.ErrMissingUserID, string(raw.Type))
		}

	case TypeLocationUpdate:
		id := user.NormalizeID(raw.UserID)
		if id == "" {
			return Inbound{}, errs.NewError(errs.ErrMissingUserID, string(raw.Type))
		}
		if raw.Lat == nil || raw.Lng == nil {
			return Inbound{}, errs.NewError(errs.ErrMissingPosition)
		}
		if !validCoordinate(*raw.Lat) || !validCoordinate(*raw.Lng) {
			return Inbound{}, errs.NewError(errs.ErrMissingPosition)
		}
		in.Location = user.Record{
			ID:   id,
			Name: raw.UserName,
			Lat:  *raw.Lat,
			Lng:  *raw.Lng,
		}

	case TypeUserClick:
		in.Click = ClickRequest{
			FromUserID:   user.NormalizeID(firstNonEmpty(raw.FromUserID, raw.From)),
			FromUserName: raw.FromUserName,
			ToUserID:     user.NormalizeID(firstNonEmpty(raw.ToUserID, raw.To)),
		}
		if in.Click.FromUserID == "" || in.Click.ToUserID == "" {
			return Inbound{}, errs.NewError(errs.ErrMissingClickTarget)
		}

	default:
		return Inbound{}, errs.NewError(errs.ErrUnsupportedMessageType, string(raw.Type))
	}

	return in, nil
}
