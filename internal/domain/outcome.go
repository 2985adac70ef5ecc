package domain

// Outcome is a per-task result label. A task either ends with scraped
// prices (or the literal "N/A" for an empty-but-read price field) or with
// exactly one of these labels in both price columns.
type Outcome string

const (
	OutcomeDatePreviouslyFailed      Outcome = "DatePreviouslyFailed"
	OutcomeDateSelectionError        Outcome = "DateSelectionError"
	OutcomeDateDataNotLoaded         Outcome = "DateDataNotLoaded"
	OutcomeUnknownRaceCode           Outcome = "UnknownRaceCode"
	OutcomeCodeSelectionError        Outcome = "CodeSelectionError"
	OutcomeVenueLoadError            Outcome = "VenueLoadError"
	OutcomeAmbiguousFuzzyMatch       Outcome = "AmbiguousFuzzyMatch"
	OutcomeVenueDataUnavailable      Outcome = "VenueDataUnavailable"
	OutcomeVenueElementErrorMidRace  Outcome = "VenueElementErrorMidRace"
	OutcomeRaceTimeout               Outcome = "RaceTimeout"
	OutcomeRaceElementMissing        Outcome = "RaceElementMissing"
	OutcomeRaceStaleElement          Outcome = "RaceStaleElement"
	OutcomeRaceError                 Outcome = "RaceError"
	OutcomeRunnerNotFoundOnPage      Outcome = "RunnerNotFoundOnPage"
	OutcomeStaleElement              Outcome = "StaleElement"
	OutcomeScrapeError               Outcome = "ScrapeError"
	OutcomeDriverSetupErrorPhase     Outcome = "DriverSetupErrorPhase"
	OutcomeDateParseErrorForGrouping Outcome = "DateParseErrorForGrouping"
)

// NoPrice marks a price field that was read successfully but was empty on
// the page. It must never collide with a failure label.
const NoPrice = "N/A"

// retryPolicy declares, once, which outcomes are worth carrying into the
// fuzzy-matching retry phase. Everything absent from this table is
// terminal: input-data problems, structural ambiguity, and narrow
// race/runner failures are not improved by retrying.
var retryPolicy = map[Outcome]bool{
	OutcomeDateDataNotLoaded: true,
	OutcomeVenueLoadError:    true,
}

// Retryable reports whether tasks with this outcome go to the retry queue.
func (o Outcome) Retryable() bool {
	return retryPolicy[o]
}

var allOutcomes = map[string]struct{}{
	string(OutcomeDatePreviouslyFailed):      {},
	string(OutcomeDateSelectionError):        {},
	string(OutcomeDateDataNotLoaded):         {},
	string(OutcomeUnknownRaceCode):           {},
	string(OutcomeCodeSelectionError):        {},
	string(OutcomeVenueLoadError):            {},
	string(OutcomeAmbiguousFuzzyMatch):       {},
	string(OutcomeVenueDataUnavailable):      {},
	string(OutcomeVenueElementErrorMidRace):  {},
	string(OutcomeRaceTimeout):               {},
	string(OutcomeRaceElementMissing):        {},
	string(OutcomeRaceStaleElement):          {},
	string(OutcomeRaceError):                 {},
	string(OutcomeRunnerNotFoundOnPage):      {},
	string(OutcomeStaleElement):              {},
	string(OutcomeScrapeError):               {},
	string(OutcomeDriverSetupErrorPhase):     {},
	string(OutcomeDateParseErrorForGrouping): {},
}

// IsFailureLabel reports whether a price-column value is one of the fixed
// failure labels, for success/failure accounting.
func IsFailureLabel(v string) bool {
	_, ok := allOutcomes[v]
	return ok
}
