package catalog

import "strings"

// SubjectType is the media kind of a catalog subject, using the remote wire codes.
type SubjectType int

const (
	SubjectUnknown SubjectType = 0
	SubjectBook    SubjectType = 1
	SubjectAnime   SubjectType = 2
	SubjectMusic   SubjectType = 3
	SubjectGame    SubjectType = 4
	SubjectReal    SubjectType = 6
)

// SubjectTypeFromCode maps a wire code to a SubjectType. Unrecognized codes
// become SubjectUnknown.
func SubjectTypeFromCode(code int) SubjectType {
	switch t := SubjectType(code); t {
	case SubjectBook, SubjectAnime, SubjectMusic, SubjectGame, SubjectReal:
		return t
	default:
		return SubjectUnknown
	}
}

// Label returns the display name used in exports.
func (t SubjectType) Label() string {
	switch t {
	case SubjectBook:
		return "书籍"
	case SubjectAnime:
		return "动画"
	case SubjectMusic:
		return "音乐"
	case SubjectGame:
		return "游戏"
	case SubjectReal:
		return "三次元"
	default:
		return "未知"
	}
}

// Slug returns a stable ASCII token for storage and logs.
func (t SubjectType) Slug() string {
	switch t {
	case SubjectBook:
		return "book"
	case SubjectAnime:
		return "anime"
	case SubjectMusic:
		return "music"
	case SubjectGame:
		return "game"
	case SubjectReal:
		return "real"
	default:
		return "unknown"
	}
}

// SubjectTypes lists every member of the closed set in display order.
func SubjectTypes() []SubjectType {
	return []SubjectType{SubjectAnime, SubjectGame, SubjectBook, SubjectMusic, SubjectReal, SubjectUnknown}
}

// CollectionStatus is the user's relationship to a subject.
type CollectionStatus int

const (
	StatusWish    CollectionStatus = 1
	StatusDone    CollectionStatus = 2
	StatusDoing   CollectionStatus = 3
	StatusOnHold  CollectionStatus = 4
	StatusDropped CollectionStatus = 5
)

// CollectionStatuses lists every status in wire-code order.
func CollectionStatuses() []CollectionStatus {
	return []CollectionStatus{StatusWish, StatusDone, StatusDoing, StatusOnHold, StatusDropped}
}

// CollectionStatusFromCode maps a wire code to a status. The boolean is false
// for codes outside the closed set.
func CollectionStatusFromCode(code int) (CollectionStatus, bool) {
	s := CollectionStatus(code)
	switch s {
	case StatusWish, StatusDone, StatusDoing, StatusOnHold, StatusDropped:
		return s, true
	default:
		return 0, false
	}
}

// String returns the machine token for the status.
func (s CollectionStatus) String() string {
	switch s {
	case StatusWish:
		return "wish"
	case StatusDone:
		return "done"
	case StatusDoing:
		return "doing"
	case StatusOnHold:
		return "on_hold"
	case StatusDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// ParseCollectionStatus is the inverse of String.
func ParseCollectionStatus(value string) (CollectionStatus, bool) {
	for _, s := range CollectionStatuses() {
		if strings.EqualFold(strings.TrimSpace(value), s.String()) {
			return s, true
		}
	}
	return 0, false
}
