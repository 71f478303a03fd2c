package audio

// Sound is a logical cue; each maps to a set of interchangeable clips.
type Sound uint8

const (
	Startup Sound = iota
	BeginScan
	TargetAcquired
	ContactLost
	ContactRestored
	TargetLost
	PickedUp
	numSounds
)

var soundNames = [numSounds]string{
	"startup", "begin_scan", "target_acquired", "contact_lost",
	"contact_restored", "target_lost", "picked_up",
}

func (s Sound) String() string {
	if s < numSounds {
		return soundNames[s]
	}
	return "unknown"
}

// Clip is one stored recording. Its value is its index in the clip store.
type Clip uint8

const (
	SfxDeploy Clip = iota
	SfxActive
	Searching
	Activated
	SentryModeActivated
	CouldYouComeOverHere
	Deploying
	HelloFriend
	WhoIsThere
	ClipTargetAcquired
	Gotcha
	ISeeYou
	ThereYouAre
	SfxRetract
	SfxPing
	Hi
	SfxAlert
	IsAnyoneThere
	Hellooooo
	AreYouStillThere
	ClipTargetLost
	Malfunctioning
	PutMeDown
	WhoAreYou
	PleasePutMeDown
	NumClips
)

// File names in the clip store, at most 16 bytes each.
var clipNames = [NumClips]string{
	"sfx_deploy", "sfx_active", "searching", "activated", "sentry_mode",
	"come_over_here", "deploying", "hello_friend", "who_is_there", "target_acquired",
	"gotcha", "i_see_you", "there_you_are", "sfx_retract", "sfx_ping",
	"hi", "sfx_alert", "is_anyone_there", "hellooooo", "still_there",
	"target_lost", "malfunctioning", "put_me_down", "who_are_you", "please_put_down",
}

func (c Clip) String() string {
	if c < NumClips {
		return clipNames[c]
	}
	return "unknown"
}

// FileIndex is the clip's position in the store directory.
func (c Clip) FileIndex() int { return int(c) }

// ClipNames lists store file names in directory order.
func ClipNames() []string { return clipNames[:] }

var soundClips = [numSounds][]Clip{
	Startup:         {SfxDeploy, SfxActive},
	BeginScan:       {Searching, Activated, SentryModeActivated, CouldYouComeOverHere, Deploying},
	TargetAcquired:  {HelloFriend, WhoIsThere, ClipTargetAcquired, Gotcha, ISeeYou, ThereYouAre},
	ContactLost:     {SfxRetract},
	ContactRestored: {SfxPing, Hi, SfxAlert},
	TargetLost:      {IsAnyoneThere, Hellooooo, AreYouStillThere, ClipTargetLost},
	PickedUp:        {Malfunctioning, PutMeDown, WhoAreYou, PleasePutMeDown},
}

// Clips returns the candidate clips for s, or nil for an unknown sound.
func Clips(s Sound) []Clip {
	if s >= numSounds {
		return nil
	}
	return soundClips[s]
}
