package constants

// shiftguard response codes
// these consist of 4 digit numbers
//
// the 1st 3 are randomly generated but represent specific scenarios
// 4th indicates if the response requires user interactions through a dialog box. 0 means it does not require. 1 means it requires.

var FACE_PROFILE_MISSING uint = 4310         // take the user to the face registration flow
var FACE_PROFILE_EXISTS uint = 4321          // take the user to the profile management page
var FACE_REREGISTRATION_REQUIRED uint = 4331 // stored template failed its integrity check. restart registration
var CAPTURE_SESSION_ACTIVE uint = 4470       // another capture session is still holding the sensor
var VERIFICATION_LOW_CONFIDENCE uint = 4511  // verification completed below the confidence threshold
var OUTSIDE_GEOFENCE uint = 4521             // location check failed and fallback was not permitted

var SUPPORT_EMAIL = "help@shiftguard.io"

// role claim value that may provision and use geofence override codes
var MANAGER_ROLE = "manager"

// the capture flow captures exactly these poses, in this order. changing
// the count means the aggregator and the client progress UI must change
// together.
var CAPTURE_ANGLES = []string{"front", "slight_left", "slight_right"}

var MAX_ANGLE_RETRIES = 3
var MAX_ACTIVE_SESSIONS_PER_USER int64 = 1
