package flow

// User-facing texts.
const (
	msgWelcome = "Hi! Send /first to order a first course or /second to order a second course.\n" +
		"/status shows your order, /withdraw cancels it, /cancel stops an order in progress."
	msgHint              = "Send /first or /second to order lunch."
	msgExpiredButton     = "That button has expired. Send /first or /second to start again."
	msgNothingToCancel   = "There is nothing to cancel."
	msgCancelled         = "Order cancelled."
	msgUseButtons        = "Please answer with the buttons. Order cancelled, send /first or /second to start again."
	msgInvalidChoice     = "That option is no longer valid. Order cancelled, send /first or /second to start again."
	msgNoMenu            = "There is no menu today."
	msgNoCourse          = "There is nothing on that course today."
	msgClosed            = "Sorry, orders closed at %s."
	msgAlreadyOrdered    = "You already have an order for today. Send /withdraw to cancel it first."
	msgAllTablesFull     = "Sorry, all tables are full today."
	msgTableTaken        = "Sorry, that table just filled up. Please pick another one."
	msgPickTable         = "Where would you like to sit?"
	msgNotPlaced         = "Your order could not be placed: %s."
	msgSorry             = "Sorry, something went wrong and your order was not placed. Please try again."
	msgTryAgain          = "Sorry, something went wrong. Please try again."
	msgNoOrder           = "You have not ordered today. Send /first or /second to order."
	msgNothingToWithdraw = "You have no order to withdraw."
	msgTooLateWithdraw   = "Too late to withdraw: %s."
	msgWithdrawn         = "Your order (%s) was withdrawn."
	msgTimedOut          = "Your order timed out. Send /first or /second to start again."
	msgStopped           = "Your order was stopped. Send /first or /second to start again."
	msgPlaced            = "Order placed: %s at %s. Enjoy your lunch!"
	msgYourOrder         = "Your order for %s: %s at %s."
	msgConfirm           = "Your order: %s\nTable: %s\nConfirm?"
	msgChooseFirst       = "Choose your first course:"
	msgChooseSecond      = "Choose your second course:"
	msgChooseCondiment   = "Which condiment would you like with your %s?"
	msgChooseSide        = "Add a side dish to your %s, or Continue."
	msgSidesSoFar        = "So far: %s"
)

// Option labels.
const (
	labelContinue = "Continue"
	labelConfirm  = "Confirm"
	labelCancel   = "Cancel"
)
