package store

// ContestMeta is the contest descriptor embedded in a contest info payload.
type ContestMeta struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	TitleSlug string `json:"title_slug"`
	StartTime int64  `json:"start_time"`
	Duration  int64  `json:"duration"`
}

// ContestInfo is the contest metadata returned by the host site.
type ContestInfo struct {
	Contest    ContestMeta `json:"contest"`
	UserNum    int         `json:"user_num"`
	Registered bool        `json:"registered"`
}

// Submission is one problem's submission outcome inside a ranking row.
type Submission struct {
	ID           int64  `json:"id"`
	Date         int64  `json:"date"`
	QuestionID   int    `json:"question_id"`
	SubmissionID int64  `json:"submission_id"`
	Status       int    `json:"status"`
	FailCount    int    `json:"fail_count"`
	Lang         string `json:"lang"`
	DataRegion   string `json:"data_region"`
}

// RankRow is one row of a paginated ranking page.
type RankRow struct {
	Username   string `json:"username"`
	UserSlug   string `json:"user_slug"`
	Region     string `json:"data_region"`
	Rank       int    `json:"rank"`
	Score      int    `json:"score"`
	FinishTime int64  `json:"finish_time"`
}

// RankingPage is one page of the live contest ranking. Submissions runs
// parallel to TotalRank: Submissions[i] holds the per-question outcomes for
// the user in TotalRank[i].
type RankingPage struct {
	TotalRank   []RankRow            `json:"total_rank"`
	Submissions []map[int]Submission `json:"submissions"`
	UserNum     int                  `json:"user_num"`
}

// MyRanking is the requesting user's live global rank.
type MyRanking struct {
	MyRank       RankRow            `json:"my_rank"`
	MySubmission map[int]Submission `json:"my_submission"`
}

// PreviousRankRow is one row of the bulk historical rating snapshot. Acc is
// the user's attended-contest count at snapshot time.
type PreviousRankRow struct {
	Username   string  `json:"username"`
	Region     string  `json:"data_region"`
	Score      int     `json:"score"`
	FinishTime int64   `json:"finish_time"`
	Rating     float64 `json:"rating"`
	Acc        int     `json:"acc"`
}

// PreviousRatingData is the bulk historical snapshot for a contest.
type PreviousRatingData struct {
	TotalRank []PreviousRankRow `json:"totalRank"`
}

// UserRecord is the normalized per-user record merged from all sources.
type UserRecord struct {
	Username   string             `json:"username"`
	Region     string             `json:"region"`
	Rank       int                `json:"rank,omitempty"`
	Score      int                `json:"score"`
	FinishTime int64              `json:"finish_time"`
	Submission map[int]Submission `json:"submission"`
}

// Prediction is a coarse, externally computed prediction entry.
type Prediction struct {
	OldRating float64  `json:"old_rating"`
	Delta     *float64 `json:"delta,omitempty"`
}

// RealPrediction is the locally derived prediction state for a user.
// PreCache memoizes the (rank, old rating) fingerprint of the last delta
// computation so an unchanged input skips the expensive predictor run.
type RealPrediction struct {
	OldRating float64  `json:"old_rating"`
	Delta     *float64 `json:"delta,omitempty"`
	Acc       int      `json:"acc"`
	Rank      int      `json:"rank,omitempty"`
	PreCache  *float64 `json:"-"`
}

// Status tracks the historical snapshot fetch for a contest.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusLoading   Status = "loading"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// PreviousState holds the historical snapshot, the rating list ordered by
// derived final rank, and the fetch status.
type PreviousState struct {
	RatingData *PreviousRatingData `json:"rating_data,omitempty"`
	Ratings    []float64           `json:"ratings,omitempty"`
	Status     Status              `json:"status"`
}

// ContestState is the full normalized state kept for one contest. All maps
// are keyed by Key(region, username).
type ContestState struct {
	Info        *ContestInfo               `json:"info,omitempty"`
	MyRanking   *MyRanking                 `json:"my_ranking,omitempty"`
	Previous    PreviousState              `json:"previous"`
	Users       map[string]*UserRecord     `json:"users"`
	Predict     map[string]Prediction      `json:"predict"`
	RealPredict map[string]*RealPrediction `json:"real_predict"`
}

// PredictionEntry is one row from the external prediction source.
type PredictionEntry struct {
	Username  string   `json:"username"`
	Region    string   `json:"data_region"`
	Delta     *float64 `json:"delta,omitempty"`
	OldRating *float64 `json:"oldRating,omitempty"`
}

// Attendance is one attended entry of a user's contest history, ordered
// ascending by contest start time.
type Attendance struct {
	Attended bool `json:"attended"`
	Contest  struct {
		StartTime int64 `json:"startTime"`
	} `json:"contest"`
	Rating float64 `json:"rating"`
}

// HistoryRating is a point-in-time rating resolved from a user's history.
// Acc counts the contests attended strictly before the target time.
type HistoryRating struct {
	OldRating float64 `json:"oldRating"`
	Acc       int     `json:"acc"`
}
