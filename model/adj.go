package model

// Default adjustment levels. Lower values are more important. The engine reads
// its bands from policy.Thresholds, which is populated from these values unless
// the caller injects its own.
const (
	InvalidAdj = -10000

	NativeAdj            = -1000
	SystemAdj            = -900
	PersistentProcAdj    = -800
	PersistentServiceAdj = -700

	ForegroundAppAdj                  = 0
	PerceptibleRecentForegroundAppAdj = 50
	VisibleAppAdj                     = 100
	PerceptibleAppAdj                 = 200
	PerceptibleMediumAppAdj           = 225
	PerceptibleLowAppAdj              = 250
	BackupAppAdj                      = 300
	HeavyWeightAppAdj                 = 400
	ServiceAdj                        = 500
	HomeAppAdj                        = 600
	PreviousAppAdj                    = 700
	ServiceBAdj                       = 800
	CachedAppMinAdj                   = 900
	CachedAppMaxAdj                   = 999
	UnknownAdj                        = 1001
)
