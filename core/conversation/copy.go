package conversation

import "github.com/m3rciful/leadbot/core/lang"

// Button ids. These travel to the platform and come back as selections.
const (
	BtnServices    = "services"
	BtnBookMeeting = "book_meeting"
	BtnMore        = "more"
	BtnLeadStart   = "lead_start"
	BtnHandover    = "handover"
	BtnMainMenu    = "main_menu"

	BtnServicePrefix = "svc:"
	BtnServiceOther  = "svc_other"

	BtnBudgetLow  = "budget_low"
	BtnBudgetMid  = "budget_mid"
	BtnBudgetHigh = "budget_high"

	BtnTimelineASAP    = "timeline_asap"
	BtnTimelineQuarter = "timeline_quarter"
	BtnTimelineLater   = "timeline_later"

	BtnSkipNotes = "skip_notes"

	BtnLangEN = "lang_en"
	BtnLangAR = "lang_ar"
)

// Stored values for preset budget and timeline answers.
var (
	budgetValues = map[string]string{
		BtnBudgetLow:  "low",
		BtnBudgetMid:  "medium",
		BtnBudgetHigh: "high",
	}
	timelineValues = map[string]string{
		BtnTimelineASAP:    "asap",
		BtnTimelineQuarter: "1-3 months",
		BtnTimelineLater:   "later",
	}
)

var labels = map[string]lang.Text{
	BtnServices:        lang.T("Our services", "خدماتنا"),
	BtnBookMeeting:     lang.T("Book a meeting", "حجز اجتماع"),
	BtnMore:            lang.T("More", "المزيد"),
	BtnLeadStart:       lang.T("Get a quote", "طلب عرض سعر"),
	BtnHandover:        lang.T("Talk to a human", "التحدث مع موظف"),
	BtnMainMenu:        lang.T("Main menu", "القائمة الرئيسية"),
	BtnServiceOther:    lang.T("Something else", "شيء آخر"),
	BtnBudgetLow:       lang.T("Under $2k", "أقل من 2 ألف $"),
	BtnBudgetMid:       lang.T("$2k to $10k", "من 2 إلى 10 آلاف $"),
	BtnBudgetHigh:      lang.T("Over $10k", "أكثر من 10 آلاف $"),
	BtnTimelineASAP:    lang.T("ASAP", "في أقرب وقت"),
	BtnTimelineQuarter: lang.T("1-3 months", "1-3 أشهر"),
	BtnTimelineLater:   lang.T("Later", "لاحقاً"),
	BtnSkipNotes:       lang.T("Skip", "تخطي"),
}

var msg = struct {
	ChooseLanguage   string
	Welcome          lang.Text
	MainMenu         lang.Text
	MoreMenu         lang.Text
	ServicesIntro    lang.Text
	ServicesMenu     lang.Text
	MoreOptions      lang.Text
	FAQFollowUp      lang.Text
	NotUnderstood    lang.Text
	Unsupported      lang.Text
	ResetDone        lang.Text
	AfterHours       lang.Text
	AskName          lang.Text
	BadName          lang.Text
	AskEmail         lang.Text
	BadEmail         lang.Text
	AskTopic         lang.Text
	BadTopic         lang.Text
	MeetingDone      lang.Text
	AskService       lang.Text
	AskOtherService  lang.Text
	BadText          lang.Text
	AskBudget        lang.Text
	AskTimeline      lang.Text
	AskNotes         lang.Text
	LeadHot          lang.Text
	LeadWarm         lang.Text
	LeadCold         lang.Text
	AskReason        lang.Text
	HandoverOpen     lang.Text
	HandoverClosed   lang.Text
	LanguageSelected lang.Text
}{
	ChooseLanguage: "Please choose your language\nيرجى اختيار لغتك",
	Welcome: lang.T(
		"Welcome to %s! How can we help you today?",
		"أهلاً بك في %s! كيف يمكننا مساعدتك اليوم؟",
	),
	MainMenu:      lang.T("How can we help you today?", "كيف يمكننا مساعدتك اليوم؟"),
	MoreMenu:      lang.T("More options:", "خيارات أخرى:"),
	ServicesIntro: lang.T("Here is what %s offers:", "هذه خدمات %s:"),
	ServicesMenu:  lang.T("What would you like to do next?", "ماذا تود أن تفعل الآن؟"),
	MoreOptions:   lang.T("More options", "خيارات إضافية"),
	FAQFollowUp:   lang.T("Anything else?", "هل هناك شيء آخر؟"),
	NotUnderstood: lang.T(
		"Sorry, I didn't catch that. Please pick an option below.",
		"عذراً، لم أفهم ذلك. يرجى اختيار أحد الخيارات أدناه.",
	),
	Unsupported: lang.T(
		"I can only read text messages and button replies.",
		"يمكنني قراءة الرسائل النصية والأزرار فقط.",
	),
	ResetDone: lang.T("Your conversation has been reset.", "تمت إعادة تعيين المحادثة."),
	AfterHours: lang.T(
		"Our team is currently offline (working hours: %s). We'll reply as soon as we're back.",
		"فريقنا غير متاح حالياً (ساعات العمل: %s). سنرد عليك فور عودتنا.",
	),
	AskName:  lang.T("Great! What's your full name?", "رائع! ما اسمك الكامل؟"),
	BadName:  lang.T("Please send your name (up to 100 characters).", "يرجى إرسال اسمك (حتى 100 حرف)."),
	AskEmail: lang.T("Thanks, %s. What's your email address?", "شكراً %s. ما هو بريدك الإلكتروني؟"),
	BadEmail: lang.T(
		"That doesn't look like a valid email. Please try again (e.g. name@company.com).",
		"يبدو أن البريد الإلكتروني غير صحيح. يرجى المحاولة مرة أخرى (مثال: name@company.com).",
	),
	AskTopic: lang.T("What would you like to discuss in the meeting?", "ما الموضوع الذي تود مناقشته في الاجتماع؟"),
	BadTopic: lang.T("Please describe the topic in up to 500 characters.", "يرجى وصف الموضوع في حدود 500 حرف."),
	MeetingDone: lang.T(
		"Thank you! Your meeting request has been received. We'll email %s to confirm a time.",
		"شكراً لك! تم استلام طلب الاجتماع. سنراسلك على %s لتأكيد الموعد.",
	),
	AskService:      lang.T("Which service are you interested in?", "ما الخدمة التي تهمك؟"),
	AskOtherService: lang.T("Tell us briefly what you need.", "أخبرنا باختصار بما تحتاجه."),
	BadText:         lang.T("Please reply with a short text (up to 200 characters).", "يرجى الرد بنص قصير (حتى 200 حرف)."),
	AskBudget:       lang.T("What's your approximate budget?", "ما هي ميزانيتك التقريبية؟"),
	AskTimeline:     lang.T("When would you like to start?", "متى تود البدء؟"),
	AskNotes: lang.T(
		"Anything else we should know? Send a note or tap Skip.",
		"هل هناك أي شيء آخر يجب أن نعرفه؟ أرسل ملاحظة أو اختر تخطي.",
	),
	LeadHot: lang.T(
		"Thank you! A specialist will call you within the hour.",
		"شكراً لك! سيتصل بك أحد المختصين خلال ساعة.",
	),
	LeadWarm: lang.T(
		"Thank you! Our team will contact you within one business day.",
		"شكراً لك! سيتواصل معك فريقنا خلال يوم عمل واحد.",
	),
	LeadCold: lang.T(
		"Thank you! We'll send you more information by message shortly.",
		"شكراً لك! سنرسل لك المزيد من المعلومات قريباً.",
	),
	AskReason: lang.T(
		"Please tell us briefly how we can help, and a team member will pick it up.",
		"يرجى إخبارنا باختصار كيف يمكننا المساعدة وسيتولى أحد أعضاء الفريق طلبك.",
	),
	HandoverOpen: lang.T(
		"Thanks! %s will get back to you shortly. You can also reach us at %s.",
		"شكراً! سيتواصل معك %s قريباً. يمكنك أيضاً التواصل معنا على %s.",
	),
	HandoverClosed: lang.T(
		"Thanks! We're outside working hours (%s), so %s will reply when we reopen.",
		"شكراً! نحن خارج ساعات العمل (%s)، لذا سيرد عليك %s عند عودتنا.",
	),
	LanguageSelected: lang.T("Language set to English.", "تم اختيار اللغة العربية."),
}
