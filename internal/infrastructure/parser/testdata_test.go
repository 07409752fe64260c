package parser

const rssFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/">
<channel>
  <title>Chain Daily</title>
  <link>https://chaindaily.example</link>
  <item>
    <title>Ethereum validators see record staking inflow</title>
    <link>https://chaindaily.example/eth-staking</link>
    <description><![CDATA[<p>Staking deposits on <b>Ethereum</b> hit a new high.</p>]]></description>
    <pubDate>Tue, 10 Jun 2025 08:30:00 +0000</pubDate>
  </item>
  <item>
    <title>Oil prices drop today</title>
    <link>https://chaindaily.example/oil</link>
    <description>Crude fell 3% &amp; traders shrugged.</description>
    <pubDate>Tue, 10 Jun 2025 07:00:00 +0000</pubDate>
  </item>
  <item>
    <title></title>
    <link>https://chaindaily.example/untitled</link>
  </item>
</channel>
</rss>`

const atomFixture = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Layer Two Notes</title>
  <entry>
    <title type="html">Rollups &amp; the Ethereum roadmap</title>
    <link rel="replies" href="https://l2.example/rollups#comments"/>
    <link rel="alternate" href="https://l2.example/rollups"/>
    <updated>2025-06-11T12:00:00Z</updated>
    <summary type="html">&lt;p&gt;Blobs made data cheap.&lt;/p&gt;</summary>
  </entry>
</feed>`
