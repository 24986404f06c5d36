package tenant

import (
	"time"

	"github.com/m3rciful/leadbot/core/lang"
)

var businessWeek = []time.Weekday{time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday}

// DefaultRegistry returns the built-in demo tenants used when no tenants file is configured.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultID, defaultTenant(), premiumTenant())
	if err != nil {
		panic(err)
	}
	return r
}

func defaultTenant() *Tenant {
	return &Tenant{
		ID:   DefaultID,
		Name: lang.T("Nova Digital", "نوفا ديجيتال"),
		Hours: WorkingHours{
			Days:      businessWeek,
			StartHour: 9,
			EndHour:   18,
			UTCOffset: 4 * time.Hour,
		},
		Services: []Service{
			{
				ID:          "web",
				Title:       lang.T("Websites", "مواقع الويب"),
				Description: lang.T("Company websites and landing pages.", "مواقع الشركات وصفحات الهبوط."),
			},
			{
				ID:          "apps",
				Title:       lang.T("Mobile apps", "تطبيقات الجوال"),
				Description: lang.T("iOS and Android apps built end to end.", "تطبيقات iOS وأندرويد من البداية للنهاية."),
			},
			{
				ID:          "ads",
				Title:       lang.T("Ad campaigns", "الحملات الإعلانية"),
				Description: lang.T("Paid social and search campaigns.", "حملات مدفوعة على الشبكات الاجتماعية ومحركات البحث."),
			},
		},
		FAQ: []FAQEntry{
			{
				Keywords: map[lang.Language][]string{
					lang.English: {"price", "pricing", "cost", "how much"},
					lang.Arabic:  {"سعر", "الأسعار", "تكلفة", "كم السعر"},
				},
				Answer: lang.T(
					"Projects start from $1,500. Tap \"Get a quote\" for an estimate.",
					"تبدأ المشاريع من 1500 دولار. اختر \"طلب عرض سعر\" للحصول على تقدير.",
				),
			},
			{
				Keywords: map[lang.Language][]string{
					lang.English: {"where", "location", "address", "office"},
					lang.Arabic:  {"أين", "موقع", "عنوان", "مكتب"},
				},
				Answer: lang.T("Our office is in Dubai Internet City.", "مكتبنا في مدينة دبي للإنترنت."),
			},
		},
		Support: Contact{Name: "Nova Support", Phone: "+971400000000", Email: "support@nova.example"},
	}
}

func premiumTenant() *Tenant {
	return &Tenant{
		ID:   PremiumID,
		Name: lang.T("Nova Premium", "نوفا بريميوم"),
		Hours: WorkingHours{
			Days:      []time.Weekday{time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday},
			StartHour: 8,
			EndHour:   22,
			UTCOffset: 4 * time.Hour,
		},
		Services: []Service{
			{
				ID:          "platform",
				Title:       lang.T("Custom platforms", "منصات مخصصة"),
				Description: lang.T("Enterprise platforms with a dedicated team.", "منصات للمؤسسات مع فريق مخصص."),
			},
			{
				ID:          "consulting",
				Title:       lang.T("Consulting", "الاستشارات"),
				Description: lang.T("Architecture and growth consulting.", "استشارات البنية والنمو."),
			},
		},
		FAQ: []FAQEntry{
			{
				Keywords: map[lang.Language][]string{
					lang.English: {"sla", "support hours", "response time"},
					lang.Arabic:  {"اتفاقية", "وقت الاستجابة"},
				},
				Answer: lang.T(
					"Premium clients get a 1-hour response time, 7 days a week.",
					"يحصل عملاء بريميوم على استجابة خلال ساعة طوال أيام الأسبوع.",
				),
			},
		},
		Support: Contact{Name: "Premium Desk", Phone: "+971400000001", Email: "premium@nova.example"},
		Labels: map[string]lang.Text{
			"handover": lang.T("Account manager", "مدير الحساب"),
		},
	}
}
