package config

type WorkerKeyStruct struct {
	// AttemptResultsQueue receives finished and regraded attempts for the
	// notification collaborator.
	AttemptResultsQueue string
	ExpirySweepJob      string
}

var WorkerKey = &WorkerKeyStruct{
	AttemptResultsQueue: "attempt_results_queue",
	ExpirySweepJob:      "attempt_expiry_sweep",
}
