package catalog

type labelKey struct {
	subject SubjectType
	status  CollectionStatus
}

// StatusLabelTable maps every (subject type, status) pair to its display
// label. The zero value is not usable; build one with NewStatusLabelTable and
// share it read-only.
type StatusLabelTable struct {
	labels map[labelKey]string
}

type verbSet struct {
	wish, doing, done string
}

var (
	videoVerbs = verbSet{wish: "想看", doing: "在看", done: "看过"}
	bookVerbs  = verbSet{wish: "想读", doing: "在读", done: "读过"}
	musicVerbs = verbSet{wish: "想听", doing: "在听", done: "听过"}
	gameVerbs  = verbSet{wish: "想玩", doing: "在玩", done: "玩过"}
)

const (
	onHoldLabel  = "搁置"
	droppedLabel = "抛弃"
)

// NewStatusLabelTable builds the complete label table. Unknown subjects share
// the video vocabulary.
func NewStatusLabelTable() *StatusLabelTable {
	table := &StatusLabelTable{labels: make(map[labelKey]string)}
	for _, subject := range SubjectTypes() {
		verbs := verbsFor(subject)
		table.labels[labelKey{subject, StatusWish}] = verbs.wish
		table.labels[labelKey{subject, StatusDoing}] = verbs.doing
		table.labels[labelKey{subject, StatusDone}] = verbs.done
		table.labels[labelKey{subject, StatusOnHold}] = onHoldLabel
		table.labels[labelKey{subject, StatusDropped}] = droppedLabel
	}
	return table
}

func verbsFor(subject SubjectType) verbSet {
	switch subject {
	case SubjectBook:
		return bookVerbs
	case SubjectMusic:
		return musicVerbs
	case SubjectGame:
		return gameVerbs
	default:
		return videoVerbs
	}
}

// Label returns the display label for the pair. Subject types outside the
// closed set resolve like SubjectUnknown.
func (t *StatusLabelTable) Label(subject SubjectType, status CollectionStatus) string {
	if label, ok := t.labels[labelKey{SubjectTypeFromCode(int(subject)), status}]; ok {
		return label
	}
	return status.String()
}

// Len reports how many pairs the table covers.
func (t *StatusLabelTable) Len() int {
	return len(t.labels)
}
